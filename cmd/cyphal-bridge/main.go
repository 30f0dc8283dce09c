// Command cyphal-bridge is a minimal example node: it loads a transport
// and subscription set from an INI config file, brings up the matching
// driver, and loops polling/flushing the node façade, printing every
// transfer it receives. It demonstrates wiring, not a production bridge.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cyphal-go/transport/can"
	"github.com/cyphal-go/transport/can/socketcan"
	"github.com/cyphal-go/transport/config"
	"github.com/cyphal-go/transport/node"
	"github.com/cyphal-go/transport/session"
	"github.com/cyphal-go/transport/transport"
	"github.com/cyphal-go/transport/udp"
	"github.com/cyphal-go/transport/udp/udpsock"
)

func main() {
	log.SetLevel(log.InfoLevel)

	configPath := flag.String("c", "bridge.ini", "path to the bridge's INI config file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cyphal-bridge: %v\n", err)
		os.Exit(1)
	}

	rx, tx, err := bringUp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cyphal-bridge: %v\n", err)
		os.Exit(1)
	}

	log.Infof("cyphal-bridge: node %d listening on %s transport with %d subscriptions",
		cfg.NodeID, cfg.Transport.Kind, len(cfg.Subscriptions))

	start := time.Now()
	now := func() transport.Instant { return transport.Instant(time.Since(start)) }

	period := 1 * time.Millisecond
	for {
		transfer, err := rx.Poll(now())
		if err != nil {
			log.Warnf("cyphal-bridge: poll error: %v", err)
		} else if transfer != nil {
			log.Infof("cyphal-bridge: received %s transfer, %d payload bytes",
				transfer.Header.Kind(), len(transfer.Payload))
		}

		if err := tx.Flush(now()); err != nil && err != transport.ErrWouldBlock {
			log.Warnf("cyphal-bridge: flush error: %v", err)
		}

		time.Sleep(period)
	}
}

// bringUp constructs the node façade pair for cfg.Transport's kind,
// installing every configured subscription on the receiver side.
func bringUp(cfg *config.Config) (node.Receiver, node.Transmitter, error) {
	switch cfg.Transport.Kind {
	case config.TransportCAN:
		return bringUpCAN(cfg)
	case config.TransportUDP:
		return bringUpUDP(cfg)
	default:
		return nil, nil, fmt.Errorf("transport kind %q has no cyphal-bridge driver wired yet", cfg.Transport.Kind)
	}
}

func bringUpCAN(cfg *config.Config) (node.Receiver, node.Transmitter, error) {
	driver, err := socketcan.New(cfg.Transport.Interface, cfg.Transport.FilterBanks)
	if err != nil {
		return nil, nil, fmt.Errorf("socketcan: %w", err)
	}

	mtu := can.MtuClassic8
	if cfg.Transport.FD {
		mtu = can.MtuCanFD64
	}

	sessions := session.NewDynamicMap[transport.CANTransferID](0)
	receiver := can.NewReceiver(cfg.NodeID, sessions)
	var filters []can.Filter
	for _, sub := range cfg.Subscriptions {
		receiver.Subscribe(can.Subscription{
			Kind:       sub.Kind,
			Port:       sub.Port,
			MaxPayload: sub.MaxPayload,
			Timeout:    sub.Timeout,
		})
		filters = append(filters, can.SubscriptionFilter(can.Subscription{Kind: sub.Kind, Port: sub.Port}, cfg.NodeID))
	}
	if installed, err := can.OptimizeFilters(filters, driver.NumBanks()); err == nil {
		driver.ModifyFilters(installed)
	} else {
		log.Warnf("cyphal-bridge: could not fit hardware filters, falling back to accept-all: %v", err)
	}

	transmitter := can.NewTransmitter(mtu, 64)
	return node.NewCANReceiver(driver, receiver), node.NewCANTransmitter(transmitter, driver), nil
}

func bringUpUDP(cfg *config.Config) (node.Receiver, node.Transmitter, error) {
	addr := &net.UDPAddr{Port: cfg.Transport.Port}
	driver, err := udpsock.New(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("udpsock: %w", err)
	}
	if err := driver.SetNonblocking(); err != nil {
		return nil, nil, fmt.Errorf("udpsock: %w", err)
	}

	for _, sub := range cfg.Subscriptions {
		if sub.Kind == transport.KindMessage {
			group := udp.MulticastAddress(transport.SubjectID(sub.Port)).To4()
			if err := driver.JoinMulticast(group); err != nil {
				return nil, nil, fmt.Errorf("udpsock: join %v: %w", group, err)
			}
		}
	}

	sessions := session.NewDynamicMap[transport.TransferID](0)
	receiver := udp.NewReceiver(sessions)
	for _, sub := range cfg.Subscriptions {
		receiver.Subscribe(udp.Subscription{
			Kind:       sub.Kind,
			Port:       sub.Port,
			MaxPayload: sub.MaxPayload,
			Timeout:    sub.Timeout,
		})
	}

	localBase := net.ParseIP(cfg.Transport.MulticastBase).To4()
	transmitter := udp.NewTransmitter(1200, localBase)
	return node.NewUDPReceiver(driver, receiver), node.NewUDPTransmitter(transmitter, driver, 64), nil
}

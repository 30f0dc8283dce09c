// Package config loads transport bring-up and subscription settings from
// an INI file via gopkg.in/ini.v1, the teacher's config-file library
// (there used to parse EDS object-dictionary files; here repurposed for
// transport and subscription bring-up instead of CANopen object entries).
package config

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/cyphal-go/transport/transport"
)

// TransportKind selects which of the three transports a [transport]
// section configures.
type TransportKind string

const (
	TransportCAN    TransportKind = "can"
	TransportSerial TransportKind = "serial"
	TransportUDP    TransportKind = "udp"
)

// Transport holds the bring-up parameters for one transport instance,
// read from the file's [transport] section. Only the fields relevant to
// Kind are populated; the rest are left zero.
type Transport struct {
	Kind TransportKind

	// CAN
	Interface  string
	FilterBanks int
	FD         bool

	// Serial
	Device   string
	BaudRate int

	// UDP
	MulticastBase string
	Port          int
}

// Subscription mirrors one [subscription.*] section: a port this node
// listens on, and the bounds its receiver enforces for it.
type Subscription struct {
	Kind       transport.PortKind
	Port       uint32
	MaxPayload int
	Timeout    time.Duration
}

// Config is a fully parsed bring-up file: one transport plus its
// subscriptions.
type Config struct {
	NodeID       transport.NodeID
	Transport    Transport
	Subscriptions []Subscription
}

// Load reads and parses path, an INI file with one [transport] section
// and zero or more [subscription.NAME] sections (spec.md §7 ambient
// config expansion).
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return parse(f)
}

func parse(f *ini.File) (*Config, error) {
	cfg := &Config{}

	node, err := f.Section("node").Key("id").Uint()
	if err != nil {
		return nil, fmt.Errorf("config: node.id: %w", err)
	}
	cfg.NodeID = transport.NodeID(node)

	tsec := f.Section("transport")
	kind := TransportKind(strings.ToLower(tsec.Key("kind").String()))
	tr := Transport{Kind: kind}
	switch kind {
	case TransportCAN:
		tr.Interface = tsec.Key("interface").MustString("can0")
		tr.FilterBanks = tsec.Key("filter_banks").MustInt(4)
		tr.FD = tsec.Key("fd").MustBool(false)
	case TransportSerial:
		tr.Device = tsec.Key("device").MustString("/dev/ttyUSB0")
		tr.BaudRate = tsec.Key("baud_rate").MustInt(115200)
	case TransportUDP:
		tr.MulticastBase = tsec.Key("multicast_base").MustString("239.0.0.0")
		tr.Port = tsec.Key("port").MustInt(9382)
	default:
		return nil, fmt.Errorf("config: transport.kind %q not recognized", kind)
	}
	cfg.Transport = tr

	for _, section := range f.Sections() {
		name := section.Name()
		if !strings.HasPrefix(name, "subscription.") {
			continue
		}
		sub, err := parseSubscription(section)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
		log.Debugf("config: loaded subscription %s: kind=%v port=%d", name, sub.Kind, sub.Port)
		cfg.Subscriptions = append(cfg.Subscriptions, sub)
	}

	return cfg, nil
}

func parseSubscription(section *ini.Section) (Subscription, error) {
	kindStr := strings.ToLower(section.Key("kind").String())
	var kind transport.PortKind
	switch kindStr {
	case "message":
		kind = transport.KindMessage
	case "request":
		kind = transport.KindRequest
	case "response":
		kind = transport.KindResponse
	default:
		return Subscription{}, fmt.Errorf("unknown kind %q", kindStr)
	}

	port, err := section.Key("port").Uint()
	if err != nil {
		return Subscription{}, fmt.Errorf("port: %w", err)
	}

	maxPayload := section.Key("max_payload").MustInt(63)
	timeoutMs := section.Key("timeout_ms").MustInt(2000)

	return Subscription{
		Kind:       kind,
		Port:       uint32(port),
		MaxPayload: maxPayload,
		Timeout:    time.Duration(timeoutMs) * time.Millisecond,
	}, nil
}

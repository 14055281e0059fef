package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a table server REST address in format [host]:[port]
//	-ws-address table server WebSocket URL (e.g. ws://host:port/sync)
//	-transport-mode protocol client implementation ("http" or "ws")
//	-d snapshot cache DSN (SQLite file path)
//	-c/-config json file path with configs
//	-token bearer token for authenticated requests
//	-pending-timeout unconfirmed mutation deadline (e.g., "5s")
//	-conflict-window conflict reconciliation window (e.g., "5s")
//	-resync-interval background resync period (e.g., "5m")
//	-request-timeout request timeout (e.g., "30s", "1m")
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var wsAddress string
	var transportMode string
	var snapshotDSN string
	var jsonConfigPath string
	var token string
	var pendingTimeout time.Duration
	var conflictWindow time.Duration
	var resyncInterval time.Duration
	var requestTimeout time.Duration

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&wsAddress, "ws-address", "", "WebSocket endpoint URL")
	flag.StringVar(&transportMode, "transport-mode", "", "Transport mode: http or ws")
	flag.StringVar(&snapshotDSN, "d", "", "Snapshot cache DSN")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&token, "token", "", "Bearer token")
	flag.DurationVar(&pendingTimeout, "pending-timeout", 0, "Pending operation deadline (e.g., 5s)")
	flag.DurationVar(&conflictWindow, "conflict-window", 0, "Conflict reconciliation window (e.g., 5s)")
	flag.DurationVar(&resyncInterval, "resync-interval", 0, "Background resync period (e.g., 5m)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")

	flag.Parse()

	return &StructuredConfig{
		Sync: Sync{
			PendingTimeout: pendingTimeout,
			ConflictWindow: conflictWindow,
		},
		Transport: Transport{
			Mode:           transportMode,
			HTTPAddress:    serverAddress.String(),
			WSAddress:      wsAddress,
			RequestTimeout: requestTimeout,
			Token:          token,
		},
		Storage: Storage{
			Snapshot: Snapshot{
				DSN: snapshotDSN,
			},
		},
		Workers: Workers{
			ResyncInterval: resyncInterval,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}

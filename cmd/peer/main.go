package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
	"github.com/yago-123/punch-relay/pkg/config"
	"github.com/yago-123/punch-relay/pkg/connect"
	errors "github.com/yago-123/punch-relay/pkg/error"
	"github.com/yago-123/punch-relay/pkg/puncher"
	"github.com/yago-123/punch-relay/pkg/util"
	"github.com/yago-123/punch-relay/pkg/wire"
)

const (
	ContextTimeout = 30 * time.Second
	ReadTimeout    = 5 * time.Second
	MaxMessageSize = 1500
)

func main() {
	relayAddr := flag.String("relay", "127.0.0.1:4240", "Relay address (host:port)")
	localAddr := flag.String("local", ":0", "Local UDP address to bind")
	token := flag.String("token", "", "Token to announce, e.g. server_game1, client_203.0.113.5 or a shared secret")
	message := flag.String("message", "hello through the NAT", "Message sent to the remote peer once connected")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := logrus.InfoLevel
	if *verbose {
		level = logrus.DebugLevel
	}
	logger := config.NewLogger(os.Stderr, level, config.LogFormatText)

	if *token == "" {
		logger.Error(errors.ErrEmptyToken, "Invalid arguments, -token is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, ContextTimeout)
	defer cancel()

	connector := connect.NewConnector(
		puncher.NewPuncher(puncher.WithLogger(logger.WithName("puncher"))),
		connect.WithRelayServer(*relayAddr),
		connect.WithLocalAddr(*localAddr),
		connect.WithLogger(logger.WithName("connector")),
	)

	conn, err := connector.Connect(ctx, *token)
	if err != nil {
		logger.Error(err, "Failed to connect to peer")
		os.Exit(1)
	}
	defer conn.Close()

	if errExchange := exchange(conn, conn.Remote, *message, logger); errExchange != nil {
		logger.Error(errExchange, "Failed exchanging messages")
		os.Exit(1)
	}
}

// exchange sends message to the remote peer and prints the first non-punch
// datagram it answers with.
func exchange(conn *connect.Conn, remote netip.AddrPort, message string, logger logr.Logger) error {
	if _, err := conn.WriteToUDPAddrPort([]byte(message), remote); err != nil {
		return err
	}

	buf := make([]byte, MaxMessageSize)
	deadline := time.Now().Add(ReadTimeout)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return fmt.Errorf("no message from remote peer within %s", ReadTimeout)
			}
			return err
		}
		// late punch probes and introductions share the socket
		if wire.IsPacket(buf[:n]) {
			continue
		}

		logger.Info("Received message", "from", util.RedactAddr(from), "message", string(buf[:n]))
		return nil
	}
}

// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jontk/reservation-protocol/internal/clientconn"
	"github.com/jontk/reservation-protocol/internal/wire"
	"github.com/jontk/reservation-protocol/pkg/config"
	"github.com/jontk/reservation-protocol/pkg/retry"
)

var (
	Version = "dev"

	serverAddr   string
	port         int
	semantics    string
	lossProb     float64
	retryBackoff string

	rootCmd = &cobra.Command{
		Use:     "reservation-client",
		Short:   "interactive client for the facility reservation server",
		Version: Version,
		RunE:    run,
	}
)

func init() {
	cfg := config.NewClientDefault()
	rootCmd.Flags().StringVar(&serverAddr, "server", cfg.ServerAddr, "reservation server address (env: RESERVATION_SERVER_ADDR)")
	rootCmd.Flags().IntVar(&port, "port", cfg.Port, "reservation server UDP port (env: RESERVATION_SERVER_PORT)")
	rootCmd.Flags().StringVar(&semantics, "semantics", string(cfg.Semantics), "invocation semantics: at-most-once or at-least-once")
	rootCmd.Flags().Float64Var(&lossProb, "loss", cfg.LossProbability, "probability of simulated outbound request loss")
	rootCmd.Flags().StringVar(&retryBackoff, "retry-backoff", string(cfg.RetryBackoff), "at-least-once retransmission schedule: fixed, exponential, or linear")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.NewClientDefault()
	cfg.Load()
	cfg.ServerAddr = serverAddr
	cfg.Port = port
	cfg.Semantics = config.Semantics(semantics)
	cfg.LossProbability = lossProb
	cfg.RetryBackoff = config.RetryBackoff(retryBackoff)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	conn, err := dialWithBackoff(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("connect to %s:%d: %w", cfg.ServerAddr, cfg.Port, err)
	}
	defer conn.Close()

	go printNotifications(conn)

	if cfg.Semantics == config.AtLeastOnce {
		fmt.Printf("connected to %s:%d (%s, %s backoff)\n", cfg.ServerAddr, cfg.Port, cfg.Semantics, cfg.RetryBackoff)
	} else {
		fmt.Printf("connected to %s:%d (%s)\n", cfg.ServerAddr, cfg.Port, cfg.Semantics)
	}
	fmt.Println("commands: query, book, change, extend, monitor, status, exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmdName := fields[0]
		args := fields[1:]

		if cmdName == "exit" {
			return nil
		}

		if err := dispatchCommand(conn, cmdName, args); err != nil {
			fmt.Println(err)
		}
	}
}

// dialWithBackoff retries the initial UDP dial with exponential backoff.
// A DialUDP failure here means address resolution failed (the server
// hostname isn't resolvable yet, commonly right after container
// startup), not a protocol-level error, so it is worth a few retries
// before giving up.
func dialWithBackoff(ctx context.Context, cfg *config.ClientConfig) (*clientconn.Conn, error) {
	backoff := retry.NewExponentialBackoff()
	backoff.MaxAttempts = 5
	return retry.RetryWithResult(ctx, backoff, func() (*clientconn.Conn, error) {
		return clientconn.Dial(cfg, nil)
	})
}

func printNotifications(conn *clientconn.Conn) {
	for n := range conn.Notifications() {
		fmt.Printf("\n[monitor] %s: %s\n> ", n.Facility, n.AvailabilityText)
	}
}

func dispatchCommand(conn *clientconn.Conn, name string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch name {
	case "query":
		return doQuery(ctx, conn, args)
	case "book":
		return doBook(ctx, conn, args)
	case "change":
		return doChange(ctx, conn, args)
	case "extend":
		return doExtend(ctx, conn, args)
	case "monitor":
		return doMonitor(ctx, conn, args)
	case "status":
		return doStatus(ctx, conn)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func doQuery(ctx context.Context, conn *clientconn.Conn, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: query <facility> <day>...")
	}
	days := make([]int, 0, len(args)-1)
	for _, a := range args[1:] {
		d, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid day %q: %w", a, err)
		}
		days = append(days, d)
	}
	reply, err := conn.Query(ctx, args[0], days)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func doBook(ctx context.Context, conn *clientconn.Conn, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: book <facility> <startDay> <HH:MM> <endDay> <HH:MM>")
	}
	start, err := parseDayClock(args[1], args[2])
	if err != nil {
		return err
	}
	end, err := parseDayClock(args[3], args[4])
	if err != nil {
		return err
	}
	reply, err := conn.Book(ctx, args[0], start, end)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func doChange(ctx context.Context, conn *clientconn.Conn, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: change <id> <offsetMinutes>")
	}
	offset, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", args[1], err)
	}
	reply, err := conn.Change(ctx, args[0], int32(offset))
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func doExtend(ctx context.Context, conn *clientconn.Conn, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: extend <id> <extendMinutes>")
	}
	minutes, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", args[1], err)
	}
	reply, err := conn.Extend(ctx, args[0], int32(minutes))
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func doMonitor(ctx context.Context, conn *clientconn.Conn, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: monitor <facility> <intervalMinutes>")
	}
	interval, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", args[1], err)
	}
	reply, err := conn.Monitor(ctx, args[0], int32(interval))
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func doStatus(ctx context.Context, conn *clientconn.Conn) error {
	reply, err := conn.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

// parseDayClock parses a "<day>" argument and an "HH:MM" clock argument
// into a wire.DateTime.
func parseDayClock(dayArg, clockArg string) (wire.DateTime, error) {
	day, err := strconv.Atoi(dayArg)
	if err != nil {
		return wire.DateTime{}, fmt.Errorf("invalid day %q: %w", dayArg, err)
	}
	parts := strings.SplitN(clockArg, ":", 2)
	if len(parts) != 2 {
		return wire.DateTime{}, fmt.Errorf("invalid time %q, expected HH:MM", clockArg)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return wire.DateTime{}, fmt.Errorf("invalid hour in %q: %w", clockArg, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return wire.DateTime{}, fmt.Errorf("invalid minute in %q: %w", clockArg, err)
	}
	return wire.DateTime{Day: day, Hour: hour, Minute: minute}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command client is a small driver for the broker: scripted subscriber and
// publisher runs, or an interactive prompt.
//
//	client [--endpoint tcp://localhost:5559] <id> [sub1|sub2|pub1|pub2]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alphauslabs/qbroker/client"
	"github.com/golang/glog"
)

var (
	endpoint = flag.String("endpoint", client.DefaultEndpoint, "broker endpoint")
	rounds   = flag.Int("rounds", 10, "iterations of a scripted mode")
	pause    = flag.Duration("pause", 2*time.Second, "delay between publishes")
)

var modes = map[string]func(context.Context, *client.Conn) error{
	"sub1": sub1,
	"sub2": sub2,
	"pub1": pub1,
	"pub2": pub2,
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "usage: client [flags] <id> [sub1|sub2|pub1|pub2]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, *endpoint, flag.Arg(0))
	if err != nil {
		glog.Fatalf("dial %s: %v", *endpoint, err)
	}
	defer c.Close()
	glog.Infof("connected to %s as %s", *endpoint, c.ID())

	run, ok := modes[flag.Arg(1)]
	if !ok {
		run = interactive
	}
	if err := run(ctx, c); err != nil && !errors.Is(err, context.Canceled) {
		glog.Errorf("%v", err)
	}
}

func sub1(ctx context.Context, c *client.Conn) error {
	return drain(ctx, c, []string{"classes"})
}

func sub2(ctx context.Context, c *client.Conn) error {
	return drain(ctx, c, []string{"classes", "classes too"})
}

// drain subscribes to topics, reads rounds values from each, taking them in
// turn, and unsubscribes again.
func drain(ctx context.Context, c *client.Conn, topics []string) error {
	for _, t := range topics {
		if err := c.Subscribe(ctx, t); err != nil {
			return fmt.Errorf("SUB [%s]: %w", t, err)
		}
	}
	for i := 0; i < *rounds*len(topics); i++ {
		t := topics[i%len(topics)]
		v, err := c.Get(ctx, t)
		if err != nil {
			return fmt.Errorf("GET [%s]: %w", t, err)
		}
		fmt.Printf("[%s] %s\n", t, v)
	}
	for _, t := range topics {
		if err := c.Unsubscribe(ctx, t); err != nil {
			return fmt.Errorf("UNSUB [%s]: %w", t, err)
		}
	}
	return nil
}

func pub1(ctx context.Context, c *client.Conn) error {
	return publish(ctx, c, []string{"classes"})
}

func pub2(ctx context.Context, c *client.Conn) error {
	return publish(ctx, c, []string{"classes", "classes too"})
}

func publish(ctx context.Context, c *client.Conn, topics []string) error {
	for i := 1; i <= *rounds; i++ {
		for _, t := range topics {
			msg := fmt.Sprintf("Message %d", i)
			if err := c.Put(ctx, t, msg); err != nil {
				return fmt.Errorf("PUT [%s]: %w", t, err)
			}
			fmt.Printf("[%s] <- %s\n", t, msg)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(*pause):
			}
		}
	}
	return nil
}

func interactive(ctx context.Context, c *client.Conn) error {
	in := bufio.NewScanner(os.Stdin)
	prompt := func(p string) bool {
		fmt.Print(p)
		return in.Scan()
	}

	fmt.Println("commands: SUB <topic> | UNSUB <topic> | GET <topic> | PUT <topic> | QUIT")
	for prompt("> ") {
		cmd, topic, _ := strings.Cut(strings.TrimSpace(in.Text()), " ")
		topic = strings.TrimSpace(topic)
		cmd = strings.ToUpper(cmd)

		var err error
		switch {
		case cmd == "QUIT":
			return nil
		case cmd == "":
			continue
		case topic == "":
			fmt.Println("missing topic")
			continue
		case cmd == "SUB":
			err = c.Subscribe(ctx, topic)
		case cmd == "UNSUB":
			err = c.Unsubscribe(ctx, topic)
		case cmd == "GET":
			var v string
			if v, err = c.Get(ctx, topic); err == nil {
				fmt.Println(v)
			}
		case cmd == "PUT":
			if !prompt("message: ") {
				return in.Err()
			}
			err = c.Put(ctx, topic, in.Text())
		default:
			fmt.Println("unknown command")
			continue
		}

		switch {
		case err == nil:
			fmt.Println("OK")
		case errors.Is(err, client.ErrNotFound):
			fmt.Println("no such topic")
		case errors.Is(err, client.ErrNotSubscribed):
			fmt.Println("not subscribed")
		case errors.Is(err, client.ErrRejected):
			fmt.Println("rejected")
		default:
			return err
		}
	}
	return in.Err()
}

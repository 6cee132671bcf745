// Package main - agitator
// Load generator for stress testing: many couples chatting and fighting
// over WebSocket at once.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/Nationship/internal/entropy"
	"github.com/MRamiBalles/Nationship/internal/network"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumNations     int
	ClientsPer     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Prefix         string
	Seed           int64
}

// Stats tracks performance metrics
type Stats struct {
	CommandsSent int64
	Replies      int64
	Broadcasts   int64
	Rejected     int64
	Errors       int64
	Latencies    []time.Duration
	mu           sync.Mutex
}

// commandMix weights what a simulated player does. Chat dominates, as in a real match.
var commandMix = []struct {
	cmd    string
	weight int
}{
	{"MESSAGE", 14},
	{"BATTLE", 2},
	{"RAID", 1},
	{"DIPLOMACY", 1},
	{"EXPAND", 1},
	{"FORTIFY", 1},
}

var chatter = []string{
	"good morning!",
	"how was your day?",
	"we should build a wall",
	"did you see that sunset",
	"let's raid the neighbours",
	"I made pasta",
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numNations := flag.Int("nations", 25, "Number of nations (matches)")
	clientsPer := flag.Int("clients", 2, "Clients per nation")
	interval := flag.Duration("interval", 250*time.Millisecond, "Command interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	prefix := flag.String("prefix", "stress", "Nation ID prefix")
	seed := flag.Int64("seed", 1, "Random seed for the command mix")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumNations:     *numNations,
		ClientsPer:     *clientsPer,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Prefix:         *prefix,
		Seed:           *seed,
	}

	fmt.Println("=========================================")
	fmt.Println("🔥 AGITATOR - Nationship stress test")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Nations:  %d x %d clients\n", config.NumNations, config.ClientsPer)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️ Interrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup
	fmt.Println("\n🚀 Starting clients...")

	for n := 0; n < config.NumNations; n++ {
		nationID := fmt.Sprintf("%s-%03d", config.Prefix, n)
		for c := 0; c < config.ClientsPer; c++ {
			wg.Add(1)
			rng := entropy.NewSeeded(config.Seed + int64(n*config.ClientsPer+c))
			sender := "user"
			if c%2 == 1 {
				sender = "partner"
			}
			go func() {
				defer wg.Done()
				runClient(ctx, nationID, sender, rng, config, stats)
			}()

			// Stagger client starts to avoid thundering herd
			time.Sleep(10 * time.Millisecond)
		}
	}
	fmt.Printf("✅ All %d clients started\n\n", config.NumNations*config.ClientsPer)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("📊 Progress: Sent=%d Replies=%d Broadcasts=%d Rejected=%d Errors=%d\n",
					atomic.LoadInt64(&stats.CommandsSent), atomic.LoadInt64(&stats.Replies),
					atomic.LoadInt64(&stats.Broadcasts), atomic.LoadInt64(&stats.Rejected),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, nationID, sender string, rng entropy.Source, config Config, stats *Stats) {
	u, err := url.Parse(config.ServerURL)
	if err != nil {
		log.Printf("%s: URL parse error: %v", nationID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	q := u.Query()
	q.Set("nation_id", nationID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Printf("%s: connection failed: %v", nationID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Replies come back in command order, so one FIFO of send times is enough.
	var pendingMu sync.Mutex
	var pending []time.Time

	go func() {
		for {
			var msg network.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case network.MsgTypeEvent:
				atomic.AddInt64(&stats.Broadcasts, 1)
				continue
			case network.MsgTypeError:
				atomic.AddInt64(&stats.Rejected, 1)
			}
			atomic.AddInt64(&stats.Replies, 1)

			pendingMu.Lock()
			if len(pending) > 0 {
				sent := pending[0]
				pending = pending[1:]
				pendingMu.Unlock()
				stats.mu.Lock()
				stats.Latencies = append(stats.Latencies, time.Since(sent))
				stats.mu.Unlock()
			} else {
				pendingMu.Unlock() // greeting snapshot
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cmd := generateCommand(rng, sender)
			pendingMu.Lock()
			pending = append(pending, time.Now())
			pendingMu.Unlock()

			if err := conn.WriteJSON(cmd); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.CommandsSent, 1)
		}
	}
}

func generateCommand(rng entropy.Source, sender string) network.Command {
	total := 0
	for _, m := range commandMix {
		total += m.weight
	}
	pick := entropy.IntN(rng, total)
	for _, m := range commandMix {
		if pick < m.weight {
			cmd := network.Command{Type: m.cmd}
			if m.cmd == "MESSAGE" {
				cmd.Text = chatter[entropy.IntN(rng, len(chatter))]
				cmd.Sender = sender
			}
			return cmd
		}
		pick -= m.weight
	}
	return network.Command{Type: "MESSAGE", Text: "hi", Sender: sender}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("📊 STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.CommandsSent)
	replies := atomic.LoadInt64(&stats.Replies)
	broadcasts := atomic.LoadInt64(&stats.Broadcasts)
	rejected := atomic.LoadInt64(&stats.Rejected)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Commands Sent:     %d\n", sent)
	fmt.Printf("Replies:           %d\n", replies)
	fmt.Printf("Broadcast Events:  %d\n", broadcasts)
	fmt.Printf("Rejected:          %d\n", rejected)
	fmt.Printf("Errors:            %d\n", errs)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f cmd/sec\n", throughput)

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.Latencies...)
	stats.mu.Unlock()

	var p50, p99 time.Duration
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		p50 = latencies[len(latencies)/2]
		p99 = latencies[len(latencies)*99/100]
		fmt.Printf("\nRound trip:\n")
		fmt.Printf("  Min: %v\n", latencies[0])
		fmt.Printf("  P50: %v\n", p50)
		fmt.Printf("  P99: %v\n", p99)
		fmt.Printf("  Max: %v\n", latencies[len(latencies)-1])
	}

	fmt.Println("\n-----------------------------------------")
	errorRate := float64(errs) / float64(sent+1)
	if errs == 0 && p99 < 250*time.Millisecond {
		fmt.Println("✅ TEST PASSED: System handled the load")
	} else if errorRate < 0.05 {
		fmt.Println("⚠️ TEST WARNING: Some errors or slow replies detected")
	} else {
		fmt.Println("❌ TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"commands_sent":      sent,
		"replies":            replies,
		"broadcast_events":   broadcasts,
		"rejected":           rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"p50_ms":             p50.Milliseconds(),
		"p99_ms":             p99.Milliseconds(),
		"config": map[string]interface{}{
			"nations":  config.NumNations,
			"clients":  config.ClientsPer,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	os.WriteFile("stress_test_results.json", jsonData, 0644)
	fmt.Println("\n📁 Results saved to stress_test_results.json")
}

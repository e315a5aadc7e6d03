package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"statarb-go/internal/config"
	"statarb-go/internal/strategy"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config")
	flag.Parse()

	reader := bufio.NewReader(os.Stdin)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== StatArb Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit bankroll and risk knobs")
		fmt.Println("3) Edit strategy and pair thresholds")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch paper engine")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editStrategy(reader, cfg)
		case "4":
			if err := config.Save(*configPath, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchPaper(reader, *configPath)
		case "6":
			reloaded, err := config.Load(*configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Starting cash: $%.2f\n", cfg.Paper.StartingCash)
	fmt.Printf("Max position: %.1f%% of equity\n", cfg.Risk.MaxPositionPct*100)
	fmt.Printf("Per-trade notional cap: $%.2f\n", cfg.Risk.MaxNotionalPerTrade)
	fmt.Printf("Feed: %s %s\n", cfg.Feed.Provider, strings.Join(cfg.Feed.Symbols, ", "))
	fmt.Printf("Strategy: %s\n", cfg.Strategy.Mode)
	fmt.Printf("Pairs entry |z| > %.2f, exit |z| < %.2f, kalman=%v\n", cfg.Pairs.EntryZ, cfg.Pairs.ExitZ, cfg.Pairs.UseKalman)
	fmt.Printf("Scanner min correlation: %.2f (top %d)\n", cfg.Scanner.MinCorrelation, cfg.Scanner.TopN)
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Risk / Bankroll ---")
	cfg.Paper.StartingCash = promptFloat(reader, "Starting cash", cfg.Paper.StartingCash)
	cfg.Risk.MaxPositionPct = promptPercent(reader, "Max position (% of equity)", cfg.Risk.MaxPositionPct)
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade (USD, 0 = off)", cfg.Risk.MaxNotionalPerTrade)
}

func editStrategy(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Strategy ---")
	names := make([]string, 0, len(strategy.Kinds()))
	for _, k := range strategy.Kinds() {
		names = append(names, k.String())
	}
	fmt.Printf("Available: %s\n", strings.Join(names, ", "))
	fmt.Printf("Strategy [%s]: ", cfg.Strategy.Mode)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		kind, err := strategy.ParseKind(line)
		if err != nil {
			fmt.Printf("%v, keeping %s\n", err, cfg.Strategy.Mode)
		} else {
			cfg.Strategy.Mode = kind.String()
		}
	}
	cfg.Strategy.Params.MomentumThreshold = promptFloat(reader, "Momentum threshold", cfg.Strategy.Params.MomentumThreshold)
	cfg.Strategy.Params.TrendThreshold = promptFloat(reader, "Trend threshold", cfg.Strategy.Params.TrendThreshold)
	cfg.Pairs.EntryZ = promptFloat(reader, "Pairs entry z", cfg.Pairs.EntryZ)
	cfg.Pairs.ExitZ = promptFloat(reader, "Pairs exit z", cfg.Pairs.ExitZ)
}

func launchPaper(reader *bufio.Reader, configPath string) {
	fmt.Println("Launching paper engine (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/paper", "-config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the engine and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.4g]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.4g\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridsentinel/fault-diagnosis/internal/logger"
)

type scenario struct {
	name        string
	voltage     float64
	current     float64
	temperature float64
	vibration   float64
	powerFactor float64
}

var scenarios = []scenario{
	{"normal", 230, 50, 60, 5, 0.92},
	{"overvoltage", 265, 50, 60, 5, 0.9},
	{"undervoltage", 195, 50, 60, 5, 0.9},
	{"overload", 235, 95, 65, 5.5, 0.88},
	{"overheat", 230, 60, 85, 5, 0.9},
	{"short_circuit", 215, 110, 120, 9, 0.6},
	{"mechanical", 230, 55, 65, 10.5, 0.9},
	{"low_power_factor", 228, 52, 62, 5, 0.65},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	url := flag.String("url", "http://localhost:8080/api/diagnose", "diagnose endpoint URL")
	devices := flag.Int("devices", 3, "number of simulated devices")
	interval := flag.Duration("interval", 2*time.Second, "delay between readings")
	faultRate := flag.Float64("fault-rate", 0.3, "fraction of readings drawn from fault scenarios")
	token := flag.String("token", "", "bearer token for authenticated servers")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Infof("Starting sensor simulator against %s (%d devices)", *url, *devices)

	rng := rand.New(rand.NewSource(*seed))
	client := &http.Client{Timeout: 10 * time.Second}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			logger.Info("Shutting down simulator")
			return nil
		case <-ticker.C:
			deviceID := fmt.Sprintf("SIM-%03d", rng.Intn(*devices)+1)
			sc := pickScenario(rng, *faultRate)
			if err := postReading(client, *url, *token, deviceID, sc, rng); err != nil {
				logger.Warnf("Post failed for %s: %v", deviceID, err)
			}
		}
	}
}

func pickScenario(rng *rand.Rand, faultRate float64) scenario {
	if rng.Float64() >= faultRate {
		return scenarios[0]
	}
	// Index 0 is the normal scenario
	return scenarios[1+rng.Intn(len(scenarios)-1)]
}

func postReading(client *http.Client, url, token, deviceID string, sc scenario, rng *rand.Rand) error {
	pf := sc.powerFactor + rng.NormFloat64()*0.02
	if pf > 1 {
		pf = 1
	}
	if pf < 0 {
		pf = 0
	}

	payload := map[string]interface{}{
		"device_id":    deviceID,
		"voltage":      jitter(rng, sc.voltage, 2),
		"current":      jitter(rng, sc.current, 1.5),
		"temperature":  jitter(rng, sc.temperature, 2),
		"vibration":    jitter(rng, sc.vibration, 0.3),
		"power_factor": pf,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Status     string  `json:"status"`
		FaultType  string  `json:"fault_type"`
		Confidence float64 `json:"confidence"`
		Message    string  `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("unexpected response (%d)", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, result.Message)
	}

	logger.Infof("%s [%s] -> %s (%.1f%%)", deviceID, sc.name, result.FaultType, result.Confidence)
	return nil
}

func jitter(rng *rand.Rand, base, sigma float64) float64 {
	return base + rng.NormFloat64()*sigma
}

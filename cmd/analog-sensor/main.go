// Command analog-sensor polls an analog input, conditions the samples with
// an adaptive smoothing filter, and publishes value changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/analog-sensor/internal/adc"
	"github.com/sweeney/analog-sensor/internal/filter"
	"github.com/sweeney/analog-sensor/internal/mqtt"
	"github.com/sweeney/analog-sensor/internal/status"
	"github.com/sweeney/analog-sensor/internal/web"
)

func main() {
	poll := flag.Duration("poll", 25*time.Millisecond, "ADC polling interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	chip := flag.String("chip", adc.DefaultChip, "GPIO character device for the SPI bus")
	pinCLK := flag.Int("pin-clk", adc.DefaultPinCLK, "BCM pin number for SPI clock")
	pinMOSI := flag.Int("pin-mosi", adc.DefaultPinMOSI, "BCM pin number for SPI MOSI")
	pinMISO := flag.Int("pin-miso", adc.DefaultPinMISO, "BCM pin number for SPI MISO")
	pinCS := flag.Int("pin-cs", adc.DefaultPinCS, "BCM pin number for SPI chip select")
	channel := flag.Int("channel", 0, "ADC channel (0-7)")
	snapMultiplier := flag.Float64("snap-multiplier", filter.DefaultSnapMultiplier, "Filter snap multiplier (0-1)")
	activityThreshold := flag.Float64("activity-threshold", filter.DefaultActivityThreshold, "Deviation below which the filter sleeps")
	resolution := flag.Int("resolution", adc.Resolution, "Exclusive upper bound of the sample range")
	disableSleep := flag.Bool("disable-sleep", false, "Update the output on every cycle instead of sleeping when idle")
	disableEdgeSnap := flag.Bool("disable-edge-snap", false, "Disable pre-correction near the rails")
	fastADC := flag.Bool("fast-adc", false, "Use fast (noisier) conversion timing")
	printValue := flag.Bool("print-value", false, "Print one raw sample and exit")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)

	flag.Parse()

	cfg := daemonConfig{
		poll:              *poll,
		broker:            *broker,
		heartbeat:         *heartbeat,
		chip:              *chip,
		pinCLK:            *pinCLK,
		pinMOSI:           *pinMOSI,
		pinMISO:           *pinMISO,
		pinCS:             *pinCS,
		channel:           *channel,
		snapMultiplier:    *snapMultiplier,
		activityThreshold: *activityThreshold,
		resolution:        *resolution,
		disableSleep:      *disableSleep,
		disableEdgeSnap:   *disableEdgeSnap,
		fastADC:           *fastADC,
		printValue:        *printValue,
		httpAddr:          *httpAddr,
		wsBroker:          resolveWSBroker(*wsBroker, *broker),
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

type daemonConfig struct {
	poll              time.Duration
	broker            string
	heartbeat         time.Duration
	chip              string
	pinCLK            int
	pinMOSI           int
	pinMISO           int
	pinCS             int
	channel           int
	snapMultiplier    float64
	activityThreshold float64
	resolution        int
	disableSleep      bool
	disableEdgeSnap   bool
	fastADC           bool
	printValue        bool
	httpAddr          string
	wsBroker          string
}

func run(cfg daemonConfig) error {
	// Acquisition timing is process-wide: one instance shared by every
	// reader on the bus.
	mode := adc.NewAcquisitionMode()
	if cfg.fastADC {
		mode.EnableFast()
	}

	reader, err := adc.NewRealReader(cfg.chip, cfg.pinCLK, cfg.pinMOSI, cfg.pinMISO, cfg.pinCS, cfg.channel, mode)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer reader.Close()

	// Print value mode
	if cfg.printValue {
		raw, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read adc: %w", err)
		}
		fmt.Printf("channel %d: %d\n", cfg.channel, raw)
		return nil
	}

	smoother := newSmoother(cfg)

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:            cfg.poll.Milliseconds(),
		HeartbeatMs:       cfg.heartbeat.Milliseconds(),
		SnapMultiplier:    cfg.snapMultiplier,
		ActivityThreshold: cfg.activityThreshold,
		Resolution:        cfg.resolution,
		Channel:           cfg.channel,
		Broker:            cfg.broker,
		HTTPAddr:          cfg.httpAddr,
		WSBroker:          cfg.wsBroker,
	})
	tracker.SetFastADC(mode.IsFast())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: poll=%v channel=%d snap=%v threshold=%v broker=%s heartbeat=%v fast=%v",
		cfg.poll, cfg.channel, cfg.snapMultiplier, cfg.activityThreshold, cfg.broker, cfg.heartbeat, mode.IsFast())

	ticker := time.NewTicker(cfg.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(reader, smoother, publisher, publisher, tracker, mode, cfg.heartbeat, time.Now, ticker.C, sigCh)
}

// newSmoother builds the filter from the daemon configuration.
func newSmoother(cfg daemonConfig) *filter.Smoother {
	s := filter.NewSmoother(!cfg.disableSleep, cfg.snapMultiplier)
	s.SetActivityThreshold(cfg.activityThreshold)
	s.SetResolution(cfg.resolution)
	if cfg.disableEdgeSnap {
		s.DisableEdgeSnap()
	}
	return s
}

func runLoop(reader adc.Reader, smoother *filter.Smoother, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, mode *adc.AcquisitionMode, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	var counts status.Counts
	wasSleeping := smoother.IsSleeping()
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			if err := smoother.UpdateFrom(reader); err != nil {
				log.Printf("adc read error: %v", err)
				continue
			}

			if smoother.HasChanged() {
				counts.Changes++
				reading := mqtt.Reading{
					Timestamp: t,
					Value:     smoother.Value(),
					Raw:       smoother.RawValue(),
					Sleeping:  smoother.IsSleeping(),
				}
				if err := publisher.Publish(reading); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Sleep/wake transitions
			if sleeping := smoother.IsSleeping(); sleeping != wasSleeping {
				wasSleeping = sleeping
				name := "WAKE"
				if sleeping {
					name = "SLEEP"
					counts.Sleeps++
				} else {
					counts.Wakes++
				}
				log.Printf("filter %s at value=%d raw=%d", name, smoother.Value(), smoother.RawValue())
				event := mqtt.SystemEvent{Timestamp: t, Event: name}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("publish %s error: %v", name, err)
				}
			}

			// Check for heartbeat
			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				log.Printf("heartbeat: value=%d raw=%d sleeping=%v changes=%d wakes=%d sleeps=%d",
					smoother.Value(), smoother.RawValue(), smoother.IsSleeping(), counts.Changes, counts.Wakes, counts.Sleeps)

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(smoother.Value(), smoother.RawValue(), smoother.IsSleeping(), counts)
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(smoother.Value(), smoother.RawValue(), smoother.IsSleeping(), counts)
				if mode != nil {
					tracker.SetFastADC(mode.IsFast())
				}
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}

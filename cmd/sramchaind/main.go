// Command sramchaind runs one node of the daisy chain: it opens the two
// serial links, assembles the protocol engine, and serves Prometheus
// metrics while the node runs.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinagres/sramchain/chain"
	"github.com/vinagres/sramchain/identity"
	"github.com/vinagres/sramchain/link"
	"github.com/vinagres/sramchain/mem"
	"github.com/vinagres/sramchain/metrics"
	"github.com/vinagres/sramchain/sensors"
	"github.com/vinagres/sramchain/wire"
)

var (
	upDevice   = flag.String("up-device", "/dev/ttyUSB0", "serial device toward the controller")
	upBaud     = flag.Int("up-baud", 115200, "baud rate of the up-link")
	downDevice = flag.String("down-device", "/dev/ttyUSB1", "serial device toward the next node")
	downBaud   = flag.Int("down-baud", 115200, "baud rate of the down-link")

	ramBlocks = flag.Int("ram-blocks", 4096, "number of DataSize-byte blocks in this node's RAM surface")

	idHi  = flag.Uint("id-hi", 0, "high word of this node's chip identity")
	idMid = flag.Uint("id-mid", 0, "middle word of this node's chip identity")
	idLo  = flag.Uint("id-lo", 0, "low word of this node's chip identity")

	vddCal     = flag.Uint("vdd-cal", 1514, "VDD calibration word reported by SENSORS")
	temp30Cal  = flag.Uint("temp30-cal", 956, "TS_CAL1 (30C) calibration word reported by SENSORS")
	temp110Cal = flag.Uint("temp110-cal", 708, "TS_CAL2 (110C) calibration word reported by SENSORS")

	metricsAddr = flag.String("metrics-addr", ":9273", "listen address for the /metrics endpoint")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("starting sramchain node")
	log.Printf("up-link: %s @ %d baud", *upDevice, *upBaud)
	log.Printf("down-link: %s @ %d baud", *downDevice, *downBaud)

	up, err := link.OpenSerial(link.SerialConfig{Device: *upDevice, BaudRate: *upBaud})
	if err != nil {
		log.Fatalf("opening up-link: %v", err)
	}
	defer up.Close()

	down, err := link.OpenSerial(link.SerialConfig{Device: *downDevice, BaudRate: *downBaud})
	if err != nil {
		log.Fatalf("opening down-link: %v", err)
	}
	defer down.Close()

	uid := identity.UID(identity.Static{
		Hi:  uint32(*idHi),
		Mid: uint32(*idMid),
		Lo:  uint32(*idLo),
	})
	log.Printf("node identity: %s", uid)

	surface := mem.New(*ramBlocks*wire.DataSize, wire.DataSize)
	latch := &sensors.Latch{}
	cal := sensors.Calibration{
		VDDCal:     uint16(*vddCal),
		Temp30Cal:  uint16(*temp30Cal),
		Temp110Cal: uint16(*temp110Cal),
	}

	var engine *chain.Engine
	collector := metrics.NewCollector(func() uint64 {
		if engine == nil {
			return 0
		}
		return uint64(engine.VM().WritePos())
	})
	prometheus.MustRegister(collector)

	engine = chain.New(chain.Config{
		UID:     uid,
		Up:      up,
		Down:    down,
		Surface: surface,
		Latch:   latch,
		Cal:     cal,
		Metrics: collector,
		Logger:  log.Default(),
	})

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("serving metrics on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- engine.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Printf("shutting down...")
		cancel()
		up.Close()
		down.Close()
	case err := <-runErr:
		log.Printf("engine stopped: %v", err)
	}
}

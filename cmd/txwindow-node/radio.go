package main

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-radio/txwindow/pkg/gate"
	"github.com/mesh-radio/txwindow/pkg/packet"
)

var errChannelBusy = errors.New("channel busy")

// simRadio stands in for the LoRa driver. It fails a configurable share of
// transmissions.
type simRadio struct {
	failRate float64
	verbose  bool

	mu   sync.Mutex
	rng  *rand.Rand
	sent atomic.Uint64
}

func newSimRadio(failRate float64, verbose bool) *simRadio {
	return &simRadio{
		failRate: failRate,
		verbose:  verbose,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

func (r *simRadio) Transmit(_ context.Context, p *packet.Packet) error {
	r.mu.Lock()
	fail := r.failRate > 0 && r.rng.Float64() < r.failRate
	r.mu.Unlock()

	if fail {
		return errChannelBusy
	}
	r.sent.Add(1)
	if r.verbose {
		log.Printf("[RADIO] sent %s", p)
	}
	return nil
}

// Sent returns the number of successful transmissions.
func (r *simRadio) Sent() uint64 {
	return r.sent.Load()
}

// packetSource builds outbound packets with node-unique IDs.
type packetSource struct {
	nodeNum uint32
	next    atomic.Uint32
}

// newPacketSource derives the node number from a fresh UUID, the same way
// an unprovisioned node picks one.
func newPacketSource() *packetSource {
	id := uuid.New()
	s := &packetSource{
		nodeNum: uint32(id[12])<<24 | uint32(id[13])<<16 | uint32(id[14])<<8 | uint32(id[15]),
	}
	s.next.Store(uint32(id[0])<<8 | uint32(id[1]))
	return s
}

// Packet returns a new broadcast packet for port.
func (s *packetSource) Packet(port packet.PortNum) *packet.Packet {
	p := &packet.Packet{
		ID:      s.next.Add(1),
		From:    s.nodeNum,
		To:      0xffffffff,
		Port:    port,
		Payload: []byte(port.String()),
	}
	if port == packet.PortTextMessage {
		p.WantAck = true
		p.Reliability = packet.ReliabilityReliable
	}
	return p
}

var trafficPorts = []packet.PortNum{
	packet.PortPosition,
	packet.PortTelemetry,
	packet.PortTelemetry,
	packet.PortTextMessage,
	packet.PortEmergency,
}

// runTraffic submits a packet every interval until ctx is done.
func runTraffic(ctx context.Context, g *gate.Gate, src *packetSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x7aff1c))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := src.Packet(trafficPorts[rng.IntN(len(trafficPorts))])
			d, err := g.Submit(ctx, p)
			if err != nil {
				log.Printf("[TRAFFIC] %s: %v", p, err)
				continue
			}
			log.Printf("[TRAFFIC] %s -> %s", p, d)
		}
	}
}

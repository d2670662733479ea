// Package interactive provides the operator console for txwindow-node.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/mesh-radio/txwindow/pkg/gate"
	twlog "github.com/mesh-radio/txwindow/pkg/log"
	"github.com/mesh-radio/txwindow/pkg/packet"
	"github.com/mesh-radio/txwindow/pkg/window"
	"github.com/mesh-radio/txwindow/pkg/wire"
)

// PacketSource creates outbound packets for the send command.
type PacketSource interface {
	Packet(port packet.PortNum) *packet.Packet
}

// ConfigSaver persists the window configuration and returns where it was
// written.
type ConfigSaver interface {
	SaveWindow(cfg window.Config) (string, error)
}

// Console is the interactive command loop.
type Console struct {
	gate    *gate.Gate
	remote  *gate.ProtocolHandler
	packets PacketSource
	saver   ConfigSaver
	out     io.Writer
	rl      *readline.Instance

	ctx       context.Context
	nextMsgID uint32
}

// New creates a console on the terminal.
func New(g *gate.Gate, packets PacketSource, saver ConfigSaver) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "txwindow> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(g, packets, saver, rl.Stdout())
	c.rl = rl
	g.OnEvent(c.handleEvent)
	return c, nil
}

func newConsole(g *gate.Gate, packets PacketSource, saver ConfigSaver, out io.Writer) *Console {
	return &Console{
		gate:    g,
		remote:  gate.NewProtocolHandler(g),
		packets: packets,
		saver:   saver,
		out:     out,
		ctx:     context.Background(),
	}
}

// Stdout returns a writer that coordinates with the readline prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	c.ctx = ctx

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Execute(line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns true when the console should
// exit.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "status", "s":
		c.cmdStatus()
	case "stats":
		c.cmdStats()
	case "queue", "q":
		c.cmdQueue()
	case "window", "w":
		c.cmdWindow(args)
	case "mode":
		c.cmdMode(args)
	case "capacity":
		c.cmdCapacity(args)
	case "expiry":
		c.cmdExpiry(args)
	case "force", "f":
		c.cmdForce(args)
	case "override":
		c.cmdOverride(args)
	case "reset":
		c.gate.ResetStatistics()
		c.logLocal("RESET_STATS", "SUCCESS")
		fmt.Fprintln(c.out, "Statistics reset")
	case "clear":
		n := c.gate.ClearQueue()
		c.logLocal("CLEAR_QUEUE", "SUCCESS")
		fmt.Fprintf(c.out, "Cleared %d queued packet(s)\n", n)
	case "send":
		c.cmdSend(args)
	case "tick":
		n := c.gate.Tick(c.ctx)
		fmt.Fprintf(c.out, "Tick: %d packet(s) transmitted\n", n)
	case "remote", "r":
		c.cmdRemote(args)
	case "save":
		c.cmdSave()
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help')\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Transmit Window Commands:
  Inspection:
    status                 - Show window state and next change
    stats                  - Show counters
    queue                  - List queued packets

  Configuration:
    window on|off          - Enable or disable the window
    window HH:MM HH:MM     - Set window start and end
    mode drop|queue|receive
    capacity <n>           - Set queue capacity (1-100)
    expiry <duration>      - Set queued packet expiry, e.g. 30m
    save                   - Write the window configuration to disk

  Override:
    force open|close <secs>
    override clear

  Queue:
    send [port] [count]    - Submit packets (text, position, telemetry, emergency)
    tick                   - Run one scheduler tick now
    clear                  - Discard all queued packets
    reset                  - Reset statistics

  Remote:
    remote status|stats|reset|clear
    remote open|close <secs>

  General:
    help                   - Show this help
    quit                   - Exit`)
}

func (c *Console) logLocal(command, status string) {
	c.gate.LogCommand(twlog.SourceLocal, command, 0, status, 0)
}

func (c *Console) cmdStatus() {
	s := c.gate.Status()
	fmt.Fprintln(c.out, "\nWindow Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	state := "CLOSED"
	if s.Open {
		state = "OPEN"
	}
	fmt.Fprintf(c.out, "  State:          %s\n", state)
	fmt.Fprintf(c.out, "  Enabled:        %t\n", s.Enabled)
	fmt.Fprintf(c.out, "  Window:         %s-%s\n", s.Start, s.End)
	fmt.Fprintf(c.out, "  Mode:           %s\n", s.Mode)
	fmt.Fprintf(c.out, "  Queue:          %d/%d\n", s.Queued, s.Capacity)
	fmt.Fprintf(c.out, "  Dropped:        %d\n", s.Dropped)
	if s.Override != nil {
		fmt.Fprintf(c.out, "  Override:       %s until %s\n", s.Override, s.Override.ExpiresAt.Format("15:04:05"))
	} else {
		fmt.Fprintf(c.out, "  Override:       none\n")
	}
	if s.NextTransition.IsZero() {
		fmt.Fprintf(c.out, "  Next Change:    never\n")
	} else {
		fmt.Fprintf(c.out, "  Next Change:    %s\n", s.NextTransition.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(c.out)
}

func (c *Console) cmdStats() {
	s := c.gate.Statistics()
	fmt.Fprintln(c.out, "\nStatistics")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Queued:         %d\n", s.TotalQueued)
	fmt.Fprintf(c.out, "  Dropped:        %d (overflow %d)\n", s.TotalDropped, s.OverflowCount)
	fmt.Fprintf(c.out, "  Expired:        %d\n", s.TotalExpired)
	fmt.Fprintf(c.out, "  Transmitted:    %d (high %d, normal %d)\n",
		s.TotalTransmitted, s.HighPriorityTransmitted, s.NormalPriorityTransmitted)
	fmt.Fprintf(c.out, "  Queue Time:     avg %s, max %s\n",
		s.AvgQueueTime().Round(time.Millisecond), s.MaxQueueTime.Round(time.Millisecond))
	fmt.Fprintln(c.out)
}

func (c *Console) cmdQueue() {
	entries := c.gate.QueuedPackets()
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "Queue is empty")
		return
	}
	now := time.Now()
	for i, e := range entries {
		fmt.Fprintf(c.out, "  %2d. %s prio=%d age=%s\n", i+1, e.Packet, e.Priority, e.Age(now).Round(time.Second))
	}
}

func (c *Console) report(command string, err error) {
	if err != nil {
		c.logLocal(command, "INVALID_PARAMETER")
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.logLocal(command, "SUCCESS")
	fmt.Fprintln(c.out, "OK")
}

func (c *Console) cmdWindow(args []string) {
	switch {
	case len(args) == 1 && (args[0] == "on" || args[0] == "off"):
		c.report("SET_ENABLED", c.gate.SetEnabled(args[0] == "on"))
	case len(args) == 2:
		start, err := window.ParseTimeOfDay(args[0])
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		end, err := window.ParseTimeOfDay(args[1])
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		c.report("SET_WINDOW", c.gate.SetWindow(start, end))
	default:
		fmt.Fprintln(c.out, "Usage: window on|off | window HH:MM HH:MM")
	}
}

func (c *Console) cmdMode(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: mode drop|queue|receive")
		return
	}
	m, err := window.ParseMode(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.report("SET_MODE", c.gate.SetMode(m))
}

func (c *Console) cmdCapacity(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: capacity <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid capacity: %s\n", args[0])
		return
	}
	c.report("SET_CAPACITY", c.gate.SetCapacity(n))
}

func (c *Console) cmdExpiry(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: expiry <duration>")
		return
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid duration: %s\n", args[0])
		return
	}
	c.report("SET_EXPIRY", c.gate.SetExpiry(d))
}

func (c *Console) cmdForce(args []string) {
	if len(args) != 2 || (args[0] != "open" && args[0] != "close") {
		fmt.Fprintln(c.out, "Usage: force open|close <secs>")
		return
	}
	secs, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid seconds: %s\n", args[1])
		return
	}
	d := time.Duration(secs) * time.Second
	if args[0] == "open" {
		c.report("FORCE_OPEN", c.gate.ForceOpen(d))
	} else {
		c.report("FORCE_CLOSE", c.gate.ForceClose(d))
	}
}

func (c *Console) cmdOverride(args []string) {
	if len(args) != 1 || args[0] != "clear" {
		fmt.Fprintln(c.out, "Usage: override clear")
		return
	}
	if c.gate.ClearOverride() {
		c.logLocal("CLEAR_OVERRIDE", "SUCCESS")
		fmt.Fprintln(c.out, "Override cleared")
		return
	}
	fmt.Fprintln(c.out, "No active override")
}

func (c *Console) cmdSend(args []string) {
	port := packet.PortTextMessage
	count := 1
	if len(args) > 0 {
		p, ok := packet.ParsePort(args[0])
		if !ok {
			fmt.Fprintf(c.out, "Unknown port: %s\n", args[0])
			return
		}
		port = p
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			fmt.Fprintf(c.out, "Invalid count: %s\n", args[1])
			return
		}
		count = n
	}

	for i := 0; i < count; i++ {
		p := c.packets.Packet(port)
		d, err := c.gate.Submit(c.ctx, p)
		if err != nil {
			fmt.Fprintf(c.out, "  %s: %v\n", p, err)
			continue
		}
		fmt.Fprintf(c.out, "  %s -> %s\n", p, d)
	}
}

// cmdRemote sends a command through the wire codec and the protocol
// handler, the same path a request from another node takes.
func (c *Console) cmdRemote(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "Usage: remote status|stats|reset|clear|open <secs>|close <secs>")
		return
	}

	c.nextMsgID++
	req := &wire.Request{MessageID: c.nextMsgID}
	switch args[0] {
	case "status":
		req.Command = wire.CmdGetStatus
	case "stats":
		req.Command = wire.CmdGetStatistics
	case "reset":
		req.Command = wire.CmdResetStatistics
	case "clear":
		req.Command = wire.CmdClearQueue
	case "open", "close":
		req.Command = wire.CmdForceOpen
		if args[0] == "close" {
			req.Command = wire.CmdForceClose
		}
		if len(args) > 1 {
			secs, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				fmt.Fprintf(c.out, "Invalid seconds: %s\n", args[1])
				return
			}
			req.DurationSecs = uint32(secs)
		}
	default:
		fmt.Fprintf(c.out, "Unknown remote command: %s\n", args[0])
		return
	}

	frame, err := wire.EncodeRequest(req)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	respFrame := c.remote.HandleFrame(frame)
	resp, err := wire.DecodeResponse(respFrame)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(c.out, "  [%d] %s %d bytes -> %s (%d bytes)\n",
		resp.MessageID, req.Command, len(frame), resp.Status, len(respFrame))
	if resp.Message != "" {
		fmt.Fprintf(c.out, "  %s\n", resp.Message)
	}
	if ws := resp.Window; ws != nil {
		fmt.Fprintf(c.out, "  open=%t queued=%d dropped=%d override=%s\n",
			ws.IsOpen, ws.QueuedPackets, ws.DroppedPackets, ws.Override)
	}
	if st := resp.Stats; st != nil {
		fmt.Fprintf(c.out, "  queued=%d dropped=%d delayed=%d expired=%d avg=%dms max=%dms\n",
			st.TotalQueued, st.TotalDropped, st.TotalDelayed, st.TotalExpired,
			st.AvgQueueTimeMs, st.MaxQueueTimeMs)
	}
}

func (c *Console) cmdSave() {
	if c.saver == nil {
		fmt.Fprintln(c.out, "No configuration file")
		return
	}
	path, err := c.saver.SaveWindow(c.gate.Config())
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Saved to %s\n", path)
}

func (c *Console) handleEvent(ev gate.Event) {
	var msg string
	switch ev.Type {
	case gate.EventWindowOpened, gate.EventWindowClosed:
		msg = ev.Type.String()
	case gate.EventOverrideSet, gate.EventOverrideCleared, gate.EventOverrideExpired:
		msg = fmt.Sprintf("%s %s", ev.Type, ev.Override)
	case gate.EventPacketExpired:
		msg = fmt.Sprintf("%s %s", ev.Type, ev.Packet)
	case gate.EventDrainCompleted:
		if ev.Drain == nil || ev.Drain.Transmitted == 0 {
			return
		}
		msg = fmt.Sprintf("%s sent=%d stop=%s", ev.Type, ev.Drain.Transmitted, ev.Drain.Reason)
	default:
		return
	}

	fmt.Fprintf(c.out, "\n[%s] %s\n", ev.Time.Format("15:04:05"), msg)
	if c.rl != nil {
		c.rl.Refresh()
	}
}

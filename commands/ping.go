package commands

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sigil-lang/sigil/core/vos"
)

// rttJitter keeps simulated round trip times from looking suspiciously
// flat. Indexed by sequence number so runs are repeatable.
var rttJitter = [...]float64{0.2, 0.4, 0.3, 0.5}

// Ping implements a ping command against the sandbox's virtual network.
// Replies are simulated from the configured host table so every student
// sees the same timings.
func Ping(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "ping [OPTION]... HOST",
		Short: "Send ICMP ECHO_REQUEST packets to a network host.",
	}

	count := cmd.Flags().IntLong("count", 'c', 4, "stop after sending COUNT packets")

	return cmd.Run(virtOS, func() int {
		args := cmd.Flags().Args()
		if len(args) == 0 {
			cmd.LogProgramError(virtOS, errors.New("usage error: Destination address required"))
			return 1
		}
		if *count < 1 {
			cmd.LogProgramError(virtOS, fmt.Errorf("bad number of packets to transmit: %d", *count))
			return 1
		}

		host := virtOS.LookupHost(args[0])
		if host == nil {
			fmt.Fprintf(virtOS.Stderr(), "ping: %s: Name or service not known\n", args[0])
			return 2
		}

		ttl := 56
		if host.LatencyMillis == 0 {
			ttl = 64
		}

		w := virtOS.Stdout()
		fmt.Fprintf(w, "PING %s (%s) 56(84) bytes of data.\n", host.Name, host.Address)

		var times []float64
		for seq := 1; seq <= *count; seq++ {
			rtt := float64(host.LatencyMillis) + rttJitter[(seq-1)%len(rttJitter)]
			times = append(times, rtt)

			// Pace replies like the real tool when a person is watching.
			if virtOS.GetPTY().IsPTY {
				time.Sleep(time.Duration(rtt*float64(time.Millisecond)) + time.Second)
			}

			fmt.Fprintf(w, "64 bytes from %s (%s): icmp_seq=%d ttl=%d time=%.1f ms\n",
				host.Name, host.Address, seq, ttl, rtt)
		}

		min, max, sum := times[0], times[0], 0.0
		for _, rtt := range times {
			if rtt < min {
				min = rtt
			}
			if rtt > max {
				max = rtt
			}
			sum += rtt
		}
		avg := sum / float64(len(times))

		var sqDev float64
		for _, rtt := range times {
			sqDev += (rtt - avg) * (rtt - avg)
		}
		mdev := math.Sqrt(sqDev / float64(len(times)))

		totalMs := (*count-1)*1000 + int(times[len(times)-1])

		fmt.Fprintf(w, "\n--- %s ping statistics ---\n", host.Name)
		fmt.Fprintf(w, "%d packets transmitted, %d received, 0%% packet loss, time %dms\n",
			*count, *count, totalMs)
		fmt.Fprintf(w, "rtt min/avg/max/mdev = %.3f/%.3f/%.3f/%.3f ms\n", min, avg, max, mdev)
		return 0
	})
}

var _ vos.ProcessFunc = Ping

func init() {
	mustAddBinCmd("ping", Ping)
}

// Command gnssrtk drives the solver package against a small synthetic
// constellation, for smoke-testing and demonstration purposes.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nav-solutions/gnss-rtk-go/pkg/bancroft"
	"github.com/nav-solutions/gnss-rtk-go/pkg/bias"
	"github.com/nav-solutions/gnss-rtk-go/pkg/candidate"
	"github.com/nav-solutions/gnss-rtk-go/pkg/carrier"
	"github.com/nav-solutions/gnss-rtk-go/pkg/config"
	"github.com/nav-solutions/gnss-rtk-go/pkg/gnss"
	"github.com/nav-solutions/gnss-rtk-go/pkg/solver"
)

func main() {
	app := &cli.App{
		Version: "v0.1.0",
		Authors: []*cli.Author{
			{Name: "nav-solutions"},
		},
		HelpName: "gnssrtk",
		Usage:    "GNSS PVT solver demo CLI",
		Commands: []*cli.Command{
			{
				Name:  "demo",
				Usage: "resolve a few epochs against a synthetic constellation",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "method", Value: "spp", Usage: "spp, cpp or ppp"},
					&cli.IntFlag{Name: "epochs", Value: 3, Usage: "number of epochs to resolve"},
				},
				Action: runDemo,
			},
			{
				Name:  "bancroft",
				Usage: "bootstrap a position from four synthetic ranges",
				Action: runBancroft,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func parseMethod(name string) config.Method {
	switch name {
	case "cpp":
		return config.CPP
	case "ppp":
		return config.PPP
	default:
		return config.SPP
	}
}

type fixedOrbits struct {
	positions map[candidate.SV]candidate.Vector3
}

func (f fixedOrbits) NextAt(_ time.Time, sv candidate.SV, _ int) (candidate.OrbitalState, bool) {
	pos, ok := f.positions[sv]
	if !ok {
		return candidate.OrbitalState{}, false
	}
	return candidate.OrbitalState{Position: pos}, true
}

func demoConstellation() map[candidate.SV]candidate.Vector3 {
	return map[candidate.SV]candidate.Vector3{
		{System: gnss.GPS, PRN: 1}: {X: 20_200_000, Y: 2_000_000, Z: 5_000_000},
		{System: gnss.GPS, PRN: 2}: {X: -15_000_000, Y: 18_000_000, Z: 8_000_000},
		{System: gnss.GPS, PRN: 3}: {X: 3_000_000, Y: -20_200_000, Z: 10_000_000},
		{System: gnss.GPS, PRN: 4}: {X: -8_000_000, Y: -9_000_000, Z: 20_200_000},
		{System: gnss.GPS, PRN: 5}: {X: 12_000_000, Y: 14_000_000, Z: -18_000_000},
	}
}

func syntheticPool(rx candidate.Vector3, sats map[candidate.SV]candidate.Vector3, t time.Time) []candidate.Candidate {
	pool := make([]candidate.Candidate, 0, len(sats))
	for sv, pos := range sats {
		rho := pos.Sub(rx).Norm()
		pool = append(pool, candidate.New(sv, t, []candidate.Observation{
			{Carrier: carrier.L1, PseudoRangeM: fptr(rho), SNRdBHz: fptr(45)},
		}))
	}
	return pool
}

func fptr(v float64) *float64 { return &v }

func runDemo(c *cli.Context) error {
	method := parseMethod(c.String("method"))
	epochs := c.Int("epochs")

	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := demoConstellation()

	cfg := config.StaticPreset(method)
	if err := cfg.Validate(); err != nil {
		return err
	}

	s := solver.New(cfg, &rx, fixedOrbits{positions: sats}, nil, bias.Niell{}, bias.Klobuchar{})

	t0 := time.Now().UTC()
	for i := 0; i < epochs; i++ {
		t := t0.Add(time.Duration(i) * time.Second)
		sol, err := s.Resolve(t, syntheticPool(rx, sats, t))
		if err != nil {
			fmt.Fprintf(c.App.Writer, "epoch %d: %v\n", i, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "epoch %d: pos=(%.2f,%.2f,%.2f) dt=%s gdop=%.2f\n",
			i, sol.Position.X, sol.Position.Y, sol.Position.Z, sol.Dt, sol.GDOP)
	}

	return nil
}

func runBancroft(c *cli.Context) error {
	rx := candidate.Vector3{X: 4_000_000, Y: 300_000, Z: 4_800_000}
	sats := demoConstellation()

	var pool []candidate.Candidate
	t := time.Now().UTC()
	i := 0
	for sv, pos := range sats {
		if i >= 4 {
			break
		}
		rho := pos.Sub(rx).Norm()
		cd := candidate.New(sv, t, []candidate.Observation{
			{Carrier: carrier.L1, PseudoRangeM: fptr(rho)},
		})
		orbit := candidate.OrbitalState{Position: pos}
		cd.Orbit = &orbit
		cd.ClockCorr = &candidate.ClockCorrection{}
		pool = append(pool, cd)
		i++
	}

	sol, err := bancroft.Resolve(pool)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "bancroft: (%.2f,%.2f,%.2f) cdt=%.2f\n", sol.X, sol.Y, sol.Z, sol.CDt)
	return nil
}

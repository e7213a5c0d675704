package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	kitlog "github.com/go-kit/kit/log"
	"github.com/thearn/newroutes"
)

const (
	defaultScenario = "~~unset~~"
)

var (
	scenario string
	prefix   string
	simulate bool
	check    bool
)

func init() {
	// Read flags
	flag.StringVar(&scenario, "scenario", defaultScenario, "airspace scenario TOML file (defaults are used if unset)")
	flag.StringVar(&prefix, "prefix", "airspace", "prefix of the exported files")
	flag.BoolVar(&simulate, "sim", true, "simulate the initial guess and export the states")
	flag.BoolVar(&check, "check", true, "check the analytic partials of the plane dynamics")
}

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	conf := newroutes.DefaultScenarioConfig()
	if scenario != defaultScenario {
		var err error
		if conf, err = newroutes.LoadScenarioConfig(scenario); err != nil {
			log.Fatal(err)
		}
	}
	if conf.Verbose {
		logger.Log("level", "info", "subsys", "conf", "seed", conf.Seed, "max_time(s)", conf.MaxTime, "radius(m)", conf.Radius, "segments", conf.Segments, "order", conf.Order)
	}

	s, err := newroutes.NewScenario(conf, logger)
	if err != nil {
		log.Fatalf("could not create scenario: %s", err)
	}
	export := newroutes.ExportConfig{Filename: prefix, OutputDir: conf.OutputDir, AsCSV: true}
	if err = newroutes.WriteSchedule(export, s); err != nil {
		log.Fatalf("could not write schedule: %s", err)
	}

	guess, err := s.InitialGuess()
	if err != nil {
		log.Fatalf("could not build initial guess: %s", err)
	}
	if _, err = s.Evaluate(guess); err != nil {
		log.Fatalf("could not evaluate initial guess: %s", err)
	}

	if check {
		ins, err := s.PlaneInputs(guess)
		if err != nil {
			log.Fatal(err)
		}
		for i, in := range ins {
			report, err := newroutes.CheckPartials(s.ODE.Planes[i], in, newroutes.DefaultFDStep)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%s partials\n%s\n", newroutes.PlaneName(i), report)
			logger.Log("level", "info", "subsys", "check", "plane", newroutes.PlaneName(i), "max_rel_err", report.MaxRelError(), "undeclared", len(report.Undeclared))
		}
	}

	if !simulate {
		return
	}
	ctrl, err := newroutes.NewNodeControls(s.Grid.Times(guess.TInitial, guess.TDuration), guess.Controls)
	if err != nil {
		log.Fatalf("could not interpolate controls: %s", err)
	}
	sim := newroutes.NewSimulation(s, ctrl, guess.TDuration, export, logger)
	if err = sim.Run(); err != nil {
		log.Fatalf("simulation failed: %s", err)
	}
}

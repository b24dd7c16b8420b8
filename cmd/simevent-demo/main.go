// Command simevent-demo runs the bouncing-ball scenario: a triggered
// event handler models a rigid floor stop, a scheduled event reporter
// prints the trajectory, and the stepper drives the event subsystem
// through the run.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/comalice/simevent"
	"github.com/comalice/simevent/stepper"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	reportStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	impactStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	doneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

func main() {
	root := &cobra.Command{
		Use:           "simevent-demo",
		Short:         "Event subsystem demonstration scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var configPath string
	var stopTime float64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drop a ball onto a rigid floor and watch the events",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := defaultScenario()
			if configPath != "" {
				data, err := os.ReadFile(configPath)
				if err != nil {
					return err
				}
				if sc, err = loadScenario(data); err != nil {
					return err
				}
			}
			if stopTime > 0 {
				sc.Stepper.StopTime = stopTime
			}
			return run(sc)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "scenario YAML file")
	cmd.Flags().Float64VarP(&stopTime, "stop", "t", 0, "override stop time")
	return cmd
}

func run(sc Scenario) error {
	sys := simevent.NewSubsystem()

	b := newBall(sc)
	if err := sys.AdoptTriggeredEventHandler(b); err != nil {
		return err
	}

	m := &monitor{
		ball:   b,
		period: sc.ReportEvery,
		emit: func(t, y, v float64) {
			fmt.Println(reportStyle.Render(
				fmt.Sprintf("t=%7.4f  height=%8.5f  velocity=%9.5f", t, y, v)))
		},
	}
	if err := sys.AdoptScheduledEventReporter(m); err != nil {
		return err
	}

	// Announce each impact as it is handled.
	impactEvent, err := sys.UpdEvent(b.EventID())
	if err != nil {
		return err
	}
	if _, err := impactEvent.AdoptAction(simevent.NewReportAction(
		func(study simevent.Study, _ *simevent.Event, _ []simevent.Trigger) {
			t := study.CurrentState().Time()
			fmt.Println(impactStyle.Render(
				fmt.Sprintf("t=%7.4f  impact #%d at speed %.5f", t, b.bounces+1, -b.velocityAt(t))))
		})); err != nil {
		return err
	}

	st, err := stepper.New(sys, sc.Stepper)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf(
		"bouncing ball  run=%s  g=%g e=%g h0=%g", st.RunID(), sc.Gravity, sc.Restitution, sc.DropHeight)))

	if err := st.Run(); err != nil {
		return err
	}

	impactTrigger, err := sys.GetEventTrigger(b.TriggerID())
	if err != nil {
		return err
	}
	fmt.Println(doneStyle.Render(fmt.Sprintf(
		"done at t=%.4f: %d impacts, witness fired %d times, ball %s",
		st.CurrentState().Time(), b.bounces, impactTrigger.Occurrences(),
		map[bool]string{true: "at rest", false: "still moving"}[st.Terminated()])))
	return nil
}

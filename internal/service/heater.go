package service

import (
	"context"
	"errors"
	"fmt"

	"heater_monitor/internal/heater"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/models"
	"heater_monitor/internal/protocol"
	"heater_monitor/internal/repository"

	"github.com/jonboulle/clockwork"
)

// CommandSender delivers a command to the heater controller.
type CommandSender interface {
	Write(p []byte) error
}

type HeaterService struct {
	tracker   *heater.Tracker
	sender    CommandSender
	eventRepo repository.EventRepo
	clock     clockwork.Clock
	log       *logger.Logger
}

func NewHeaterService(tracker *heater.Tracker, sender CommandSender, eventRepo repository.EventRepo,
	clock clockwork.Clock, log *logger.Logger) *HeaterService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HeaterService{tracker: tracker, sender: sender, eventRepo: eventRepo, clock: clock, log: log}
}

// Execute applies cmd to the tracker, forwards it to the controller and logs an
// OPERATOR event. An undelivered command is not an error: the local transition
// stands and the next frame from the controller wins.
func (s *HeaterService) Execute(ctx context.Context, cmd protocol.Command) (CommandResult, error) {
	var st models.HeaterState
	switch cmd {
	case protocol.CmdTempUp:
		s.tracker.AdjustTemp(true)
		st = s.tracker.State()
	case protocol.CmdTempDown:
		s.tracker.AdjustTemp(false)
		st = s.tracker.State()
	case protocol.CmdEcoOn:
		st = s.tracker.EnterEco()
	case protocol.CmdCleanOn:
		st = s.tracker.EnterClean()
	case protocol.CmdCleanOff:
		st = s.tracker.ExitClean()
	case protocol.CmdPowerOn:
		st = s.tracker.SetPower(true)
	case protocol.CmdPowerOff:
		st = s.tracker.SetPower(false)
	default:
		// ECO0 and ST<n> only reach the controller; the next frame reports the outcome.
		st = s.tracker.State()
	}

	delivered := s.send(cmd)
	res := CommandResult{Command: cmd, State: st, Delivered: delivered}

	err := s.eventRepo.Append(ctx, models.HeaterEvent{
		OccurredAt:  s.clock.Now().UTC(),
		Type:        models.EventOperator,
		Description: fmt.Sprintf("command %s", cmd),
		Metadata: map[string]any{
			"command":   string(cmd),
			"mode":      string(st.Mode),
			"set_temp":  st.SetTemp,
			"delivered": delivered,
		},
	})
	if err != nil {
		return res, fmt.Errorf("append operator event: %w", err)
	}
	return res, nil
}

func (s *HeaterService) send(cmd protocol.Command) bool {
	if s.sender == nil {
		return false
	}
	if err := s.sender.Write(cmd.Wire()); err != nil {
		level := s.log.Warnw
		if errors.Is(err, errNoLink) {
			level = s.log.Debugw
		}
		level("heater_command_not_delivered", "command", string(cmd), "err", err)
		return false
	}
	s.log.Infow("heater_command_sent", "command", string(cmd))
	return true
}

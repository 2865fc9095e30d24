package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/tazhate/gamecal/config"
	"github.com/tazhate/gamecal/internal/service"
	"github.com/tazhate/gamecal/internal/widget"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

type Scheduler struct {
	cron            *cron.Cron
	cfg             *config.Config
	todoService     *service.TodoService
	calendarService *service.CalendarService
	sender          MessageSender
}

func New(cfg *config.Config, todoSvc *service.TodoService, calendarSvc *service.CalendarService) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:            c,
		cfg:             cfg,
		todoService:     todoSvc,
		calendarService: calendarSvc,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

// cronSpec turns "HH:MM" into a daily cron expression.
func cronSpec(hhmm string) (string, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q", hhmm)
	}
	return fmt.Sprintf("%s %s * * *", parts[1], parts[0]), nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	morningSpec, err := cronSpec(s.cfg.MorningTime)
	if err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(morningSpec, s.morningWidget); err != nil {
		return fmt.Errorf("add morning widget: %w", err)
	}

	eveningSpec, err := cronSpec(s.cfg.EveningTime)
	if err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(eveningSpec, s.eveningScore); err != nil {
		return fmt.Errorf("add evening score: %w", err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"tz":      s.cfg.Timezone.String(),
		"morning": s.cfg.MorningTime,
		"evening": s.cfg.EveningTime,
	}).Info("scheduler started")

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}

func (s *Scheduler) morningWidget() {
	if s.sender == nil {
		return
	}

	text, err := s.morningText(context.Background())
	if err != nil {
		log.WithError(err).Error("build morning widget")
		return
	}
	s.broadcast(text, "morning widget")
}

func (s *Scheduler) morningText(ctx context.Context) (string, error) {
	summary, err := s.todoService.TodaySummary(s.cfg.WidgetLimit)
	if err != nil {
		return "", err
	}

	text := "☀️ <b>Good morning!</b>\n\n" + widget.Render(summary)
	if s.calendarService != nil && s.calendarService.IsConfigured() {
		view := s.calendarService.EventsToday(ctx)
		if view.Access.Granted && view.Error == "" && len(view.Events) > 0 {
			text += "\n\n<b>Events</b>\n" + s.calendarService.FormatDay(view)
		}
	}
	return text, nil
}

func (s *Scheduler) eveningScore() {
	if s.sender == nil {
		return
	}

	text, err := s.eveningText()
	if err != nil {
		log.WithError(err).Error("build evening score")
		return
	}
	s.broadcast(text, "evening score")
}

func (s *Scheduler) eveningText() (string, error) {
	score, err := s.todoService.Score()
	if err != nil {
		return "", err
	}
	summary, err := s.todoService.TodaySummary(0)
	if err != nil {
		return "", err
	}
	open, err := s.todoService.OpenCount()
	if err != nil {
		return "", err
	}

	text := "🌙 <b>Evening check-in</b>\n\n"
	text += fmt.Sprintf("Today: %d%%\nScore: %d points\n", summary.ProgressPercent, score)
	if open == 0 {
		text += "Nothing left open. Well played 🎉"
	} else {
		text += fmt.Sprintf("Open todos: %d\n\n/today to see the list", open)
	}
	return text, nil
}

func (s *Scheduler) broadcast(text, what string) {
	for _, chatID := range s.cfg.Recipients() {
		if err := s.sender.SendMessage(chatID, text); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Errorf("send %s", what)
		}
	}
}

package network

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MRamiBalles/Nationship/internal/chatbot"
	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/engine"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
)

// Transport-only command types. Everything else maps onto an engine action.
const (
	CmdSnapshot       = "SNAPSHOT"
	CmdStartDemo      = "START_DEMO"
	CmdStopDemo       = "STOP_DEMO"
	CmdToggleAutoChat = "TOGGLE_AUTOCHAT"
)

// Command is an inbound request from a WebSocket or REST client.
type Command struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Sender string `json:"sender,omitempty"`
}

// Action converts the command into an engine action.
func (c Command) Action() (engine.Action, error) {
	kind, err := engine.ParseActionKind(c.Type)
	if err != nil {
		return engine.Action{}, fmt.Errorf("%w: %q", err, c.Type)
	}
	switch kind {
	case engine.ActionSendMessage:
		if strings.TrimSpace(c.Text) == "" {
			return engine.Action{}, fmt.Errorf("%w: message text is empty", engine.ErrInvalidAction)
		}
		return engine.SendMessage(c.Text, civilization.Sender(strings.ToLower(c.Sender))), nil
	case engine.ActionRename:
		return engine.Rename(c.Text), nil
	case engine.ActionTick:
		// The engine clock stamps a zero time.
		return engine.Action{Kind: engine.ActionTick}, nil
	default:
		return engine.Action{Kind: kind}, nil
	}
}

// Result is what a handled command produced.
type Result struct {
	Events   []events.GameEvent    `json:"events,omitempty"`
	Snapshot civilization.Snapshot `json:"snapshot"`
	Bot      *chatbot.Status       `json:"bot,omitempty"`
}

// Nations resolves live nations by match ID.
type Nations interface {
	Get(ctx context.Context, nationID string) (*engine.Nation, error)
}

// Bots resolves the chatbot of a nation.
type Bots interface {
	Bot(ctx context.Context, nationID string) (*chatbot.Bot, error)
}

// Service routes commands to nations and their bots. REST and WebSocket share it.
type Service struct {
	nations Nations
	bots    Bots
	logger  *logger.Logger
}

// NewService creates the command service. bots may be nil, which disables the demo commands.
func NewService(nations Nations, bots Bots, log *logger.Logger) *Service {
	return &Service{nations: nations, bots: bots, logger: log}
}

// Snapshot returns the current view of a nation, creating it if needed.
func (s *Service) Snapshot(ctx context.Context, nationID string) (civilization.Snapshot, error) {
	n, err := s.nations.Get(ctx, nationID)
	if err != nil {
		return civilization.Snapshot{}, err
	}
	return n.Snapshot(), nil
}

// Handle executes one command against a nation.
func (s *Service) Handle(ctx context.Context, nationID string, cmd Command) (Result, error) {
	n, err := s.nations.Get(ctx, nationID)
	if err != nil {
		return Result{}, err
	}

	switch strings.ToUpper(strings.TrimSpace(cmd.Type)) {
	case CmdSnapshot:
		return Result{Snapshot: n.Snapshot()}, nil
	case CmdStartDemo, CmdStopDemo, CmdToggleAutoChat:
		status, err := s.botCommand(ctx, nationID, strings.ToUpper(strings.TrimSpace(cmd.Type)))
		if err != nil {
			return Result{}, err
		}
		return Result{Snapshot: n.Snapshot(), Bot: &status}, nil
	}

	action, err := cmd.Action()
	if err != nil {
		return Result{}, err
	}
	emitted, err := n.Do(action)
	if err != nil {
		return Result{}, err
	}
	return Result{Events: emitted, Snapshot: n.Snapshot()}, nil
}

func (s *Service) botCommand(ctx context.Context, nationID, op string) (chatbot.Status, error) {
	if s.bots == nil {
		return chatbot.Status{}, fmt.Errorf("%w: chatbot disabled", engine.ErrInvalidAction)
	}
	b, err := s.bots.Bot(ctx, nationID)
	if err != nil {
		return chatbot.Status{}, err
	}
	switch op {
	case CmdStartDemo:
		b.StartDemo()
	case CmdStopDemo:
		b.StopDemo()
	case CmdToggleAutoChat:
		b.ToggleAutoChat()
	}
	return b.Status(), nil
}

// IsClientError reports whether err was caused by the request rather than the server.
func IsClientError(err error) bool {
	return errors.Is(err, engine.ErrInvalidAction) || errors.Is(err, engine.ErrInsufficientResources)
}

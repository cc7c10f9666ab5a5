package miniserve

import (
	"context"
	"log/slog"
	"time"

	"github.com/indigo-web/miniserve/actor"
	"github.com/indigo-web/miniserve/chat"
	"github.com/indigo-web/miniserve/chat/transcript"
	"github.com/indigo-web/miniserve/config"
	"github.com/indigo-web/miniserve/internal/metrics"
	"github.com/indigo-web/miniserve/router"
)

// Chatbot is the reference deployment: the bot running behind an actor, together
// with the routes exposing it.
type Chatbot struct {
	Actor      *actor.Actor[[]string, chat.Reply]
	Router     *router.Router
	transcript *transcript.Logger
}

// Collaborators override the bot's defaults, which are built from the config.
type Collaborators struct {
	Generator chat.Generator
	Random    chat.Random
	Retriever chat.Retriever
	Reader    chat.FileReader
	Store     transcript.Store
}

func (c Collaborators) withDefaults(cfg *config.Config) (Collaborators, error) {
	if c.Generator == nil {
		c.Generator = chat.NewCanned(cfg.Chat.GenerateDelay)
	}

	if c.Random == nil {
		c.Random = chat.NewSeededRandom(cfg.Chat.Seed, cfg.Chat.RandomDelay)
	}

	if c.Retriever == nil {
		c.Retriever = chat.DirRetriever{Dir: cfg.Chat.DocsDir}
	}

	if c.Reader == nil {
		c.Reader = chat.OSReader{}
	}

	if c.Store == nil {
		store, err := transcript.New(cfg.Transcript)
		if err != nil {
			return c, err
		}

		c.Store = store
	}

	return c, nil
}

// NewChatbot starts the bot's actor. Observers are notified about its heartbeats
// and finished calls in addition to the metrics.
func NewChatbot(
	cfg *config.Config, collab Collaborators, logger *slog.Logger, m *metrics.Metrics, observers ...actor.Observer,
) (*Chatbot, error) {
	collab, err := collab.withDefaults(cfg)
	if err != nil {
		return nil, err
	}

	log := transcript.NewLogger(collab.Store, cfg.Transcript.FlushEvery)
	bot := chat.NewBot(
		collab.Generator, collab.Random, collab.Retriever, collab.Reader,
		log, logger.With("component", "bot"),
	)

	observers = append([]actor.Observer{metricsObserver{m}}, observers...)
	a := actor.New[[]string, chat.Reply](bot,
		actor.WithMailboxSize(cfg.Actor.MailboxSize),
		actor.WithHeartbeat(cfg.Actor.HeartbeatPeriod),
		actor.WithLogger(logger.With("component", "actor")),
		actor.WithObserver(actor.Observers(observers...)),
	)

	return &Chatbot{
		Actor:      a,
		Router:     chat.NewHandlers(a).Register(router.New()),
		transcript: log,
	}, nil
}

// Close stops the actor and persists the rest of the transcript.
func (c *Chatbot) Close(ctx context.Context) error {
	c.Actor.Stop()
	return c.transcript.Close(ctx)
}

type metricsObserver struct {
	m *metrics.Metrics
}

func (o metricsObserver) Heartbeat(elapsed time.Duration, pending int) {
	o.m.ActorHeartbeat(elapsed, pending)
}

func (o metricsObserver) Finished(outcome actor.Outcome, _ time.Duration) {
	o.m.ActorCall(string(outcome))
}

package dashboard

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/auth"
	"github.com/medadmin/medadmin/internal/platform/live"
	"github.com/medadmin/medadmin/internal/platform/loader"
	"github.com/medadmin/medadmin/internal/platform/session"
	"github.com/medadmin/medadmin/internal/web"
)

const (
	landing = "/"
	// LivePath is the WebSocket endpoint dashboards subscribe to.
	LivePath = "/dashboard/live"

	actionRefresh = "refresh"
)

// Streamer upgrades a request to a live connection.
type Streamer interface {
	Stream(c echo.Context, topics []string, onMessage func(live.ClientMessage)) (*live.Client, context.Context, error)
}

type Handler struct {
	fetcher   loader.Fetcher
	fragments Fragments
	publisher live.Publisher
	streamer  Streamer
	logger    zerolog.Logger
}

func NewHandler(fetcher loader.Fetcher, fragments Fragments, publisher live.Publisher, streamer Streamer, logger zerolog.Logger) *Handler {
	return &Handler{
		fetcher:   fetcher,
		fragments: fragments,
		publisher: publisher,
		streamer:  streamer,
		logger:    logger.With().Str("component", "dashboard").Logger(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/dashboard")
	g.GET("", h.Dispatch, auth.RequireSession(landing))
	g.GET("/live", h.Live, auth.RequireSession(landing))
	g.GET("/admin", h.Page(auth.RoleAdmin), auth.RequireRole(landing, auth.RoleAdmin))
	g.GET("/doctor", h.Page(auth.RoleDoctor), auth.RequireRole(landing, auth.RoleDoctor))
	g.GET("/patient", h.Page(auth.RolePatient), auth.RequireRole(landing, auth.RolePatient))
}

// Dispatch sends the user to the dashboard of their highest role.
func (h *Handler) Dispatch(c echo.Context) error {
	role, ok := session.Current(c).Roles().Primary()
	if !ok {
		return c.Redirect(http.StatusSeeOther, landing)
	}
	return c.Redirect(http.StatusSeeOther, "/dashboard/"+role.String())
}

// Page mounts role's dashboard: every slot is fetched concurrently, then the
// page renders whatever state each slot settled in.
func (h *Handler) Page(role auth.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := session.Current(c)
		board, err := NewBoard(role, h.fetcher, h.fragments, h.logger)
		if err != nil {
			return err
		}

		loader.LoadAll(c.Request().Context(), sess, board.Slots()...)

		view := PageView{
			Links:   board.Links(sess),
			View:    role.String(),
			LiveURL: LivePath + "?view=" + role.String(),
		}
		for _, s := range board.Slots() {
			html, err := renderSlot(s)
			if err != nil {
				return err
			}
			view.Slots = append(view.Slots, SlotView{Name: s.Name(), Heading: board.Heading(s.Name()), HTML: html})
		}
		return c.Render(http.StatusOK, "dashboard", web.NewPage(c, board.Title, view))
	}
}

// Live streams slot transitions of one dashboard to the browser. A refresh
// message from the browser reloads every slot; closing the socket cancels
// whatever is still loading.
func (h *Handler) Live(c echo.Context) error {
	store := session.StoreFromContext(c)
	if store == nil {
		return echo.ErrUnauthorized
	}
	sess := store.Current()

	role, ok := auth.ParseRole(c.QueryParam("view"))
	if !ok {
		if role, ok = sess.Roles().Primary(); !ok {
			return echo.ErrForbidden
		}
	}
	if auth.Authorize(sess, role) == auth.Denied {
		return echo.ErrForbidden
	}

	board, err := NewBoard(role, h.fetcher, h.fragments, h.logger)
	if err != nil {
		return err
	}

	// Logout reaches every tab on the client topic; slot events stay on
	// the view's own topic.
	clientID := store.ClientID()
	topic := live.ViewTopic(clientID, role.String())
	refresh := make(chan struct{}, 1)
	_, ctx, err := h.streamer.Stream(c, []string{live.ClientTopic(clientID), topic}, func(msg live.ClientMessage) {
		if msg.Action != actionRefresh {
			return
		}
		select {
		case refresh <- struct{}{}:
		default:
		}
	})
	if err != nil {
		// The upgrader has already answered the request.
		h.logger.Debug().Err(err).Msg("live upgrade failed")
		return nil
	}

	go h.run(ctx, board, store, topic, refresh)
	return nil
}

func (h *Handler) run(ctx context.Context, board *Board, store *session.Store, topic string, refresh <-chan struct{}) {
	for _, s := range board.Slots() {
		s := s
		s.OnChange(func(name string, phase loader.Phase) {
			if ctx.Err() != nil {
				return
			}
			h.publishSlot(ctx, s, phase, topic, board.Role.String())
		})
	}
	defer board.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh:
			store.Load(ctx)
			sess := store.Current()
			if auth.Authorize(sess, board.Role) == auth.Denied {
				h.publish(ctx, live.Event{Type: live.EventSessionEnded, Topic: topic, View: board.Role.String()})
				return
			}

			board.Cancel()
			loader.LoadAll(ctx, sess, board.Slots()...)
			if ctx.Err() != nil {
				return
			}
			h.publish(ctx, live.Event{Type: live.EventReady, Topic: topic, View: board.Role.String()})
		}
	}
}

func (h *Handler) publishSlot(ctx context.Context, s loader.Slot, phase loader.Phase, topic, view string) {
	html, err := renderSlot(s)
	if err != nil {
		h.logger.Error().Err(err).Str("slot", s.Name()).Msg("failed to render live slot")
		return
	}
	h.publish(ctx, live.Event{
		Type:  live.EventSlot,
		Topic: topic,
		View:  view,
		Slot:  s.Name(),
		Phase: phase.String(),
		HTML:  string(html),
	})
}

func (h *Handler) publish(ctx context.Context, event live.Event) {
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish live event")
	}
}

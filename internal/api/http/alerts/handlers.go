package alerts

import (
	"context"
	"io"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/relay"
	service "github.com/oshokin/safety-relay/internal/service/alerts"
	"github.com/oshokin/safety-relay/internal/version"
)

// Service abstracts the alert use cases the transport depends on.
type Service interface {
	Create(ctx context.Context, actor alert.Principal, in alert.NewAlertInput) (*alert.Alert, error)
	Get(ctx context.Context, actor alert.Principal, id string) (*alert.Alert, error)
	List(ctx context.Context, actor alert.Principal) ([]*alert.Alert, error)
	ListByReporter(ctx context.Context, actor alert.Principal, reporterID string) ([]*alert.Alert, error)
	ListByJurisdiction(ctx context.Context, actor alert.Principal, jurisdiction string) ([]*alert.Alert, error)
	ListAssigned(ctx context.Context, actor alert.Principal, officerID string) ([]*alert.Alert, error)
	Apply(
		ctx context.Context,
		actor alert.Principal,
		id string,
		action alert.Action,
		payload alert.Payload,
	) (*alert.Alert, error)
	Delete(ctx context.Context, actor alert.Principal, id string) error
	AttachVoice(ctx context.Context, actor alert.Principal, upload service.VoiceUpload) (*alert.Alert, *alert.Recording, error)
	Recordings(ctx context.Context, actor alert.Principal, alertID string) ([]*alert.Recording, error)
	OpenRecording(ctx context.Context, actor alert.Principal, name string) (io.ReadCloser, error)
}

// LiveSource reports relay occupancy.
type LiveSource interface {
	Live() []relay.LiveRoom
	Stats() relay.Stats
}

// Server exposes the alert service over HTTP.
type Server struct {
	// service provides the alert use cases.
	service Service
	// live reports which rooms are broadcasting.
	live LiveSource
	// auth validates bearer tokens.
	auth Authenticator
}

// NewServer wires the provided collaborators into HTTP handlers.
func NewServer(svc Service, live LiveSource, authenticator Authenticator) *Server {
	return &Server{
		service: svc,
		live:    live,
		auth:    authenticator,
	}
}

// Register mounts every route on router.
func (s *Server) Register(router fiber.Router) {
	router.Get("/health", s.health)

	api := router.Group("/api", AuthMiddleware(s.auth))
	api.Get("/live", s.liveRooms)
	api.Get("/recordings/:name", s.recording)

	alerts := api.Group("/alerts")
	alerts.Get("/", s.list)
	alerts.Post("/", s.create)
	alerts.Post("/voice", s.voice)
	alerts.Get("/user/:userId", s.listByReporter)
	alerts.Get("/jurisdiction/:jurisdiction", s.listByJurisdiction)
	alerts.Get("/assigned/:officerId", s.listAssigned)
	alerts.Get("/:id", s.get)
	alerts.Get("/:id/recordings", s.recordings)
	alerts.Put("/:id/:action", s.apply)
	alerts.Delete("/:id", s.delete)
}

// health handles GET /health.
func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: version.Short(),
		Relay:   s.live.Stats(),
	})
}

// liveRooms handles GET /api/live.
func (s *Server) liveRooms(c *fiber.Ctx) error {
	rooms := s.live.Live()
	if rooms == nil {
		rooms = []relay.LiveRoom{}
	}

	return c.JSON(LiveResponse{Rooms: rooms})
}

// list handles GET /api/alerts.
func (s *Server) list(c *fiber.Ctx) error {
	alerts, err := s.service.List(c.UserContext(), principalFrom(c))
	if err != nil {
		return err
	}

	return c.JSON(toAlertList(alerts))
}

// listByReporter handles GET /api/alerts/user/:userId.
func (s *Server) listByReporter(c *fiber.Ctx) error {
	alerts, err := s.service.ListByReporter(c.UserContext(), principalFrom(c), c.Params("userId"))
	if err != nil {
		return err
	}

	return c.JSON(toAlertList(alerts))
}

// listByJurisdiction handles GET /api/alerts/jurisdiction/:jurisdiction.
func (s *Server) listByJurisdiction(c *fiber.Ctx) error {
	alerts, err := s.service.ListByJurisdiction(c.UserContext(), principalFrom(c), c.Params("jurisdiction"))
	if err != nil {
		return err
	}

	return c.JSON(toAlertList(alerts))
}

// listAssigned handles GET /api/alerts/assigned/:officerId.
func (s *Server) listAssigned(c *fiber.Ctx) error {
	alerts, err := s.service.ListAssigned(c.UserContext(), principalFrom(c), c.Params("officerId"))
	if err != nil {
		return err
	}

	return c.JSON(toAlertList(alerts))
}

// get handles GET /api/alerts/:id.
func (s *Server) get(c *fiber.Ctx) error {
	found, err := s.service.Get(c.UserContext(), principalFrom(c), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(toAlertResponse(found))
}

// create handles POST /api/alerts.
func (s *Server) create(c *fiber.Ctx) error {
	var req CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	created, err := s.service.Create(c.UserContext(), principalFrom(c), alert.NewAlertInput{
		ReporterName: req.ReporterName,
		Location:     req.Location,
		Coordinates:  req.Coordinates,
		Description:  req.Description,
		Type:         alert.Type(req.Type),
		Priority:     alert.Priority(req.Priority),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toAlertResponse(created))
}

// apply handles PUT /api/alerts/:id/:action. The body is optional.
func (s *Server) apply(c *fiber.Ctx) error {
	var payload alert.Payload

	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	updated, err := s.service.Apply(
		c.UserContext(),
		principalFrom(c),
		c.Params("id"),
		alert.Action(c.Params("action")),
		payload,
	)
	if err != nil {
		return err
	}

	return c.JSON(toAlertResponse(updated))
}

// delete handles DELETE /api/alerts/:id.
func (s *Server) delete(c *fiber.Ctx) error {
	if err := s.service.Delete(c.UserContext(), principalFrom(c), c.Params("id")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// voice handles POST /api/alerts/voice with a multipart "audio" file.
func (s *Server) voice(c *fiber.Ctx) error {
	header, err := c.FormFile("audio")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Audio file is required (field name: audio)")
	}

	mimeType := c.FormValue("mimeType")
	if mimeType == "" {
		mimeType = header.Header.Get(fiber.HeaderContentType)
	}

	var durationMs int64
	if raw := c.FormValue("durationMs"); raw != "" {
		if durationMs, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "durationMs must be an integer")
		}
	}

	file, err := header.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Unreadable audio file")
	}
	defer file.Close()

	target, rec, err := s.service.AttachVoice(c.UserContext(), principalFrom(c), service.VoiceUpload{
		AlertID:      c.FormValue("alertId"),
		ReporterName: c.FormValue("reporterName"),
		Location:     c.FormValue("location"),
		Coordinates:  c.FormValue("coordinates"),
		Description:  c.FormValue("description"),
		MimeType:     mimeType,
		DurationMs:   durationMs,
		Content:      file,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(VoiceResponse{
		Alert:     toAlertResponse(target),
		Recording: toRecordingResponse(rec),
	})
}

// recordings handles GET /api/alerts/:id/recordings.
func (s *Server) recordings(c *fiber.Ctx) error {
	list, err := s.service.Recordings(c.UserContext(), principalFrom(c), c.Params("id"))
	if err != nil {
		return err
	}

	response := RecordingListResponse{Recordings: make([]RecordingResponse, 0, len(list))}
	for _, rec := range list {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}

	return c.JSON(response)
}

// recording handles GET /api/recordings/:name and streams the file.
func (s *Server) recording(c *fiber.Ctx) error {
	name := c.Params("name")

	file, err := s.service.OpenRecording(c.UserContext(), principalFrom(c), name)
	if err != nil {
		return err
	}

	c.Type(filepath.Ext(name))

	// fasthttp closes the stream once the response is written.
	return c.SendStream(file)
}

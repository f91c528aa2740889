// Package service contains the business rules of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services take repository interfaces, never *sqldb.DB, and return
// apperror values, never HTTP status codes. The handler package owns the
// translation to HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/repository"
)

// The three community collections share one shape: validate the required
// fields, append, list everything newest first. There is no pagination and
// no filtering; List is a full scan.

// AlertService manages broadcast accessibility alerts.
type AlertService struct {
	repo   repository.AlertRepository
	logger *slog.Logger
}

func NewAlertService(repo repository.AlertRepository, logger *slog.Logger) *AlertService {
	return &AlertService{repo: repo, logger: logger}
}

// Create validates and stores an alert. Category and message are required.
func (s *AlertService) Create(ctx context.Context, category, message, location string) (*model.Alert, error) {
	alert := &model.Alert{
		Category: strings.TrimSpace(category),
		Message:  strings.TrimSpace(message),
		Location: strings.TrimSpace(location),
	}
	if alert.Category == "" {
		return nil, apperror.ValidationFailed("category", "category is required")
	}
	if alert.Message == "" {
		return nil, apperror.ValidationFailed("message", "message is required")
	}

	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("creating alert: %w", err)
	}

	s.logger.Info("alert created",
		slog.String("id", alert.ID),
		slog.String("category", alert.Category),
	)
	return alert, nil
}

func (s *AlertService) List(ctx context.Context) ([]model.Alert, error) {
	alerts, err := s.repo.ListAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, nil
}

// CommunityService manages the community message feed.
type CommunityService struct {
	repo   repository.CommunityRepository
	logger *slog.Logger
}

func NewCommunityService(repo repository.CommunityRepository, logger *slog.Logger) *CommunityService {
	return &CommunityService{repo: repo, logger: logger}
}

// Create stores a community message. Only the message text is required;
// type defaults to "chat". A user_id naming no user is a validation error.
func (s *CommunityService) Create(ctx context.Context, in model.CommunityMessage) (*model.CommunityMessage, error) {
	msg := &model.CommunityMessage{
		UserID:   strings.TrimSpace(in.UserID),
		Message:  strings.TrimSpace(in.Message),
		ImageURL: strings.TrimSpace(in.ImageURL),
		Type:     strings.TrimSpace(in.Type),
	}
	if msg.Message == "" {
		return nil, apperror.ValidationFailed("message", "message is required")
	}
	if msg.Type == "" {
		msg.Type = model.DefaultMessageType
	}

	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating community message: %w", err)
	}

	s.logger.Info("community message created",
		slog.String("id", msg.ID),
		slog.String("type", msg.Type),
	)
	return msg, nil
}

func (s *CommunityService) List(ctx context.Context) ([]model.CommunityMessage, error) {
	messages, err := s.repo.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing community messages: %w", err)
	}
	return messages, nil
}

// RouteService manages saved journeys.
type RouteService struct {
	repo   repository.RouteRepository
	logger *slog.Logger
}

func NewRouteService(repo repository.RouteRepository, logger *slog.Logger) *RouteService {
	return &RouteService{repo: repo, logger: logger}
}

// Create stores a route. Start location and destination are required;
// missing accessibility filters are stored as {}.
func (s *RouteService) Create(ctx context.Context, in model.Route) (*model.Route, error) {
	route := &model.Route{
		UserID:               strings.TrimSpace(in.UserID),
		StartLocation:        strings.TrimSpace(in.StartLocation),
		Destination:          strings.TrimSpace(in.Destination),
		AccessibilityFilters: in.AccessibilityFilters,
	}
	if route.StartLocation == "" {
		return nil, apperror.ValidationFailed("start_location", "start_location is required")
	}
	if route.Destination == "" {
		return nil, apperror.ValidationFailed("destination", "destination is required")
	}
	if route.AccessibilityFilters == nil {
		route.AccessibilityFilters = map[string]any{}
	}

	if err := s.repo.CreateRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("creating route: %w", err)
	}

	s.logger.Info("route created", slog.String("id", route.ID))
	return route, nil
}

func (s *RouteService) List(ctx context.Context) ([]model.Route, error) {
	routes, err := s.repo.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}
	return routes, nil
}

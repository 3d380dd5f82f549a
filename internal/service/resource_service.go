package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vbonduro/ecosort/internal/api"
	"github.com/vbonduro/ecosort/internal/domain"
	"github.com/vbonduro/ecosort/internal/table"
)

// resourceAPI is the subset of api.Client that ResourceService requires.
type resourceAPI interface {
	ListUsers(ctx context.Context, token string) ([]domain.User, error)
	CreateUser(ctx context.Context, token string, u api.NewUser) (*domain.User, error)
	DeleteUser(ctx context.Context, token string, id int64) error

	ListWaste(ctx context.Context, token string) ([]domain.WasteRecord, error)

	ListSmartBins(ctx context.Context, token string) ([]domain.SmartBin, error)
	CreateSmartBin(ctx context.Context, token string, b api.NewSmartBin) (*domain.SmartBin, error)
	DeleteSmartBin(ctx context.Context, token string, id int64) error
	SetSmartBinCover(ctx context.Context, token string, id int64, cover string) (*domain.SmartBin, error)

	ListWasteBins(ctx context.Context, token string) ([]domain.WasteBin, error)
	CreateWasteBin(ctx context.Context, token string, b api.NewWasteBin) (*domain.WasteBin, error)
	DeleteWasteBin(ctx context.Context, token string, id int64) error

	ListWasteBots(ctx context.Context, token string) ([]domain.WasteBot, error)
	CreateWasteBot(ctx context.Context, token string, b api.NewWasteBot) (*domain.WasteBot, error)
	DeleteWasteBot(ctx context.Context, token string, id int64) error
	SetWasteBotStatus(ctx context.Context, token string, id int64, status string) (*domain.WasteBot, error)
}

// feedReader is the subset of store.FeedStore that ResourceService requires.
type feedReader interface {
	Recent(ctx context.Context, limit int) ([]domain.WasteRecord, error)
}

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("admin role required")
)

type ResourceService struct {
	api     resourceAPI
	feed    feedReader
	perPage int
	logger  *slog.Logger
}

func NewResourceService(client resourceAPI, feed feedReader, perPage int, logger *slog.Logger) *ResourceService {
	if perPage <= 0 {
		perPage = table.DefaultPerPage
	}
	return &ResourceService{api: client, feed: feed, perPage: perPage, logger: logger}
}

func (s *ResourceService) query(q table.Query) table.Query {
	if q.PerPage <= 0 {
		q.PerPage = s.perPage
	}
	return q
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// Users are searched by first or last name.
func (s *ResourceService) Users(ctx context.Context, sess *domain.Session, q table.Query) (table.Page[domain.User], error) {
	users, err := s.api.ListUsers(ctx, sess.AccessToken)
	if err != nil {
		return table.Page[domain.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return table.Apply(users, s.query(q), func(u domain.User) []string {
		return []string{u.FirstName, u.LastName}
	}), nil
}

func (s *ResourceService) CreateUser(ctx context.Context, sess *domain.Session, u api.NewUser) (*domain.User, error) {
	u.FirstName, u.LastName = strings.TrimSpace(u.FirstName), strings.TrimSpace(u.LastName)
	u.Email, u.Role = strings.TrimSpace(u.Email), strings.TrimSpace(u.Role)
	switch {
	case u.FirstName == "" || u.LastName == "":
		return nil, invalid("first and last name are required")
	case u.Email == "":
		return nil, invalid("email is required")
	case u.Password == "":
		return nil, invalid("password is required")
	case u.Role == "":
		return nil, invalid("role is required")
	}

	created, err := s.api.CreateUser(ctx, sess.AccessToken, u)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user created", "by", sess.Claims.Email, "user_id", created.ID)
	return created, nil
}

func (s *ResourceService) DeleteUser(ctx context.Context, sess *domain.Session, id int64) error {
	if err := s.api.DeleteUser(ctx, sess.AccessToken, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info("user deleted", "by", sess.Claims.Email, "user_id", id)
	return nil
}

// Waste records are searched by waste type.
func (s *ResourceService) Waste(ctx context.Context, sess *domain.Session, q table.Query) (table.Page[domain.WasteRecord], error) {
	recs, err := s.api.ListWaste(ctx, sess.AccessToken)
	if err != nil {
		return table.Page[domain.WasteRecord]{}, fmt.Errorf("failed to list waste: %w", err)
	}
	return table.Apply(recs, s.query(q), func(w domain.WasteRecord) []string {
		return []string{w.WasteType}
	}), nil
}

// RecentLive returns the newest records received over the live stream.
func (s *ResourceService) RecentLive(ctx context.Context, limit int) ([]domain.WasteRecord, error) {
	if s.feed == nil {
		return nil, nil
	}
	return s.feed.Recent(ctx, limit)
}

// SmartBins are searched by location.
func (s *ResourceService) SmartBins(ctx context.Context, sess *domain.Session, q table.Query) (table.Page[domain.SmartBin], error) {
	bins, err := s.api.ListSmartBins(ctx, sess.AccessToken)
	if err != nil {
		return table.Page[domain.SmartBin]{}, fmt.Errorf("failed to list smart bins: %w", err)
	}
	return table.Apply(bins, s.query(q), func(b domain.SmartBin) []string {
		return []string{b.Location}
	}), nil
}

// CreateSmartBin is restricted to admins.
func (s *ResourceService) CreateSmartBin(ctx context.Context, sess *domain.Session, b api.NewSmartBin) (*domain.SmartBin, error) {
	if !sess.Claims.IsAdmin() {
		return nil, ErrForbidden
	}
	b.Location = strings.TrimSpace(b.Location)
	if b.Location == "" {
		return nil, invalid("location is required")
	}
	if b.Capacity < 0 {
		return nil, invalid("capacity cannot be negative")
	}
	if b.Status == "" {
		b.Status = domain.StatusInactive
	}
	if b.Status != domain.StatusActive && b.Status != domain.StatusInactive {
		return nil, invalid("status must be Active or Inactive")
	}
	if b.Cover == "" {
		b.Cover = domain.CoverClosed
	}

	created, err := s.api.CreateSmartBin(ctx, sess.AccessToken, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create smart bin: %w", err)
	}
	s.logger.Info("smart bin created", "by", sess.Claims.Email, "bin_id", created.ID)
	return created, nil
}

// DeleteSmartBin is restricted to admins.
func (s *ResourceService) DeleteSmartBin(ctx context.Context, sess *domain.Session, id int64) error {
	if !sess.Claims.IsAdmin() {
		return ErrForbidden
	}
	if err := s.api.DeleteSmartBin(ctx, sess.AccessToken, id); err != nil {
		return fmt.Errorf("failed to delete smart bin: %w", err)
	}
	s.logger.Info("smart bin deleted", "by", sess.Claims.Email, "bin_id", id)
	return nil
}

// ToggleSmartBinCover flips the cover from its current state as last shown to
// the user.
func (s *ResourceService) ToggleSmartBinCover(ctx context.Context, sess *domain.Session, id int64, current string) (*domain.SmartBin, error) {
	next := domain.SmartBin{Cover: current}.ToggledCover()
	bin, err := s.api.SetSmartBinCover(ctx, sess.AccessToken, id, next)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle smart bin cover: %w", err)
	}
	return bin, nil
}

// WasteBins are searched by location.
func (s *ResourceService) WasteBins(ctx context.Context, sess *domain.Session, q table.Query) (table.Page[domain.WasteBin], error) {
	bins, err := s.api.ListWasteBins(ctx, sess.AccessToken)
	if err != nil {
		return table.Page[domain.WasteBin]{}, fmt.Errorf("failed to list waste bins: %w", err)
	}
	return table.Apply(bins, s.query(q), func(b domain.WasteBin) []string {
		return []string{b.Location}
	}), nil
}

func (s *ResourceService) CreateWasteBin(ctx context.Context, sess *domain.Session, b api.NewWasteBin) (*domain.WasteBin, error) {
	b.Type, b.Location = strings.TrimSpace(b.Type), strings.TrimSpace(b.Location)
	switch {
	case b.Type == "":
		return nil, invalid("type is required")
	case b.Location == "":
		return nil, invalid("location is required")
	case b.Capacity < 0:
		return nil, invalid("capacity cannot be negative")
	}

	created, err := s.api.CreateWasteBin(ctx, sess.AccessToken, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create waste bin: %w", err)
	}
	s.logger.Info("waste bin created", "by", sess.Claims.Email, "bin_id", created.ID)
	return created, nil
}

func (s *ResourceService) DeleteWasteBin(ctx context.Context, sess *domain.Session, id int64) error {
	if err := s.api.DeleteWasteBin(ctx, sess.AccessToken, id); err != nil {
		return fmt.Errorf("failed to delete waste bin: %w", err)
	}
	s.logger.Info("waste bin deleted", "by", sess.Claims.Email, "bin_id", id)
	return nil
}

// WasteBots are searched by location.
func (s *ResourceService) WasteBots(ctx context.Context, sess *domain.Session, q table.Query) (table.Page[domain.WasteBot], error) {
	bots, err := s.api.ListWasteBots(ctx, sess.AccessToken)
	if err != nil {
		return table.Page[domain.WasteBot]{}, fmt.Errorf("failed to list waste bots: %w", err)
	}
	return table.Apply(bots, s.query(q), func(b domain.WasteBot) []string {
		return []string{b.Location}
	}), nil
}

func (s *ResourceService) CreateWasteBot(ctx context.Context, sess *domain.Session, b api.NewWasteBot) (*domain.WasteBot, error) {
	b.Model, b.Location = strings.TrimSpace(b.Model), strings.TrimSpace(b.Location)
	switch {
	case b.Model == "":
		return nil, invalid("model is required")
	case b.Location == "":
		return nil, invalid("location is required")
	case b.Autonomy < 0:
		return nil, invalid("autonomy cannot be negative")
	}
	if b.Status == "" {
		b.Status = domain.StatusInactive
	}

	created, err := s.api.CreateWasteBot(ctx, sess.AccessToken, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create waste bot: %w", err)
	}
	s.logger.Info("waste bot created", "by", sess.Claims.Email, "bot_id", created.ID)
	return created, nil
}

func (s *ResourceService) DeleteWasteBot(ctx context.Context, sess *domain.Session, id int64) error {
	if err := s.api.DeleteWasteBot(ctx, sess.AccessToken, id); err != nil {
		return fmt.Errorf("failed to delete waste bot: %w", err)
	}
	s.logger.Info("waste bot deleted", "by", sess.Claims.Email, "bot_id", id)
	return nil
}

// ToggleWasteBotStatus switches a bot on or off relative to its current state.
func (s *ResourceService) ToggleWasteBotStatus(ctx context.Context, sess *domain.Session, id int64, current string) (*domain.WasteBot, error) {
	next := domain.WasteBot{Status: current}.ToggledStatus()
	bot, err := s.api.SetWasteBotStatus(ctx, sess.AccessToken, id, next)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle waste bot status: %w", err)
	}
	s.logger.Info("waste bot switched", "by", sess.Claims.Email, "bot_id", id, "status", next)
	return bot, nil
}

// Stat is one dashboard counter. Unavailable is set when its list call failed.
type Stat struct {
	Label       string
	Count       int
	Unavailable bool
}

type TypeCount struct {
	Type  string
	Count int
}

type Summary struct {
	Stats      []Stat
	ActiveBots int
	WasteTypes []TypeCount
	Recent     []domain.WasteRecord
}

const summaryRecent = 5

// Summary gathers the dashboard counters. A failing list marks its counter
// unavailable; an authorization failure aborts so the caller can end the
// session.
func (s *ResourceService) Summary(ctx context.Context, sess *domain.Session) (*Summary, error) {
	sum := &Summary{}
	token := sess.AccessToken

	var firstAuthErr error
	count := func(label string, n int, err error) {
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) && firstAuthErr == nil {
				firstAuthErr = err
			}
			s.logger.Warn("dashboard counter unavailable", "counter", label, "error", err)
			sum.Stats = append(sum.Stats, Stat{Label: label, Unavailable: true})
			return
		}
		sum.Stats = append(sum.Stats, Stat{Label: label, Count: n})
	}

	users, err := s.api.ListUsers(ctx, token)
	count("Users", len(users), err)

	waste, err := s.api.ListWaste(ctx, token)
	count("Waste collected", len(waste), err)
	sum.WasteTypes = countTypes(waste)

	smartBins, err := s.api.ListSmartBins(ctx, token)
	count("Smart bins", len(smartBins), err)

	wasteBins, err := s.api.ListWasteBins(ctx, token)
	count("Waste bins", len(wasteBins), err)

	bots, err := s.api.ListWasteBots(ctx, token)
	count("Waste bots", len(bots), err)
	for _, b := range bots {
		if b.Status == domain.StatusActive {
			sum.ActiveBots++
		}
	}

	if firstAuthErr != nil {
		return nil, firstAuthErr
	}

	recent, err := s.RecentLive(ctx, summaryRecent)
	if err != nil {
		s.logger.Warn("live feed unavailable", "error", err)
	}
	sum.Recent = recent
	return sum, nil
}

// countTypes tallies waste by lower-cased type, most frequent first.
func countTypes(recs []domain.WasteRecord) []TypeCount {
	counts := make(map[string]int)
	for _, r := range recs {
		t := strings.ToLower(strings.TrimSpace(r.WasteType))
		if t == "" {
			t = "unknown"
		}
		counts[t]++
	}
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

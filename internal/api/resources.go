package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vbonduro/ecosort/internal/domain"
)

// Tokens is the body of a successful /login/ response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewUser is the payload for registering or adding a user.
type NewUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type NewSmartBin struct {
	Status   string  `json:"status"`
	Cover    string  `json:"cover"`
	Location string  `json:"location"`
	Capacity float64 `json:"capacity"`
}

type NewWasteBin struct {
	Type     string  `json:"type"`
	Location string  `json:"location"`
	Capacity float64 `json:"capacity"`
}

type NewWasteBot struct {
	Model    string `json:"model"`
	Status   string `json:"status"`
	Location string `json:"location"`
	Autonomy int64  `json:"autonomy"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	var tokens Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login/", "", body, &tokens); err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("login response has no access token")
	}
	return &tokens, nil
}

// Register creates an account from the public sign-up page.
func (c *Client) Register(ctx context.Context, u NewUser) (*domain.User, error) {
	return c.CreateUser(ctx, "", u)
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, "/users/", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, token string, u NewUser) (*domain.User, error) {
	var created domain.User
	if err := c.do(ctx, http.MethodPost, "/users/", token, u, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteUser(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath("users", id), token, nil, nil)
}

func (c *Client) ListWaste(ctx context.Context, token string) ([]domain.WasteRecord, error) {
	var recs []domain.WasteRecord
	if err := c.do(ctx, http.MethodGet, "/waste/", token, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) ListSmartBins(ctx context.Context, token string) ([]domain.SmartBin, error) {
	var bins []domain.SmartBin
	if err := c.do(ctx, http.MethodGet, "/smartbins/", token, nil, &bins); err != nil {
		return nil, err
	}
	return bins, nil
}

func (c *Client) CreateSmartBin(ctx context.Context, token string, b NewSmartBin) (*domain.SmartBin, error) {
	var created domain.SmartBin
	if err := c.do(ctx, http.MethodPost, "/smartbins/", token, b, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteSmartBin(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath("smartbins", id), token, nil, nil)
}

// SetSmartBinCover patches only the cover field.
func (c *Client) SetSmartBinCover(ctx context.Context, token string, id int64, cover string) (*domain.SmartBin, error) {
	updated := domain.SmartBin{ID: id, Cover: cover}
	body := map[string]string{"cover": cover}
	if err := c.do(ctx, http.MethodPatch, itemPath("smartbins", id), token, body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) ListWasteBins(ctx context.Context, token string) ([]domain.WasteBin, error) {
	var bins []domain.WasteBin
	if err := c.do(ctx, http.MethodGet, "/wastebins/", token, nil, &bins); err != nil {
		return nil, err
	}
	return bins, nil
}

func (c *Client) CreateWasteBin(ctx context.Context, token string, b NewWasteBin) (*domain.WasteBin, error) {
	var created domain.WasteBin
	if err := c.do(ctx, http.MethodPost, "/wastebins/", token, b, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteWasteBin(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath("wastebins", id), token, nil, nil)
}

func (c *Client) ListWasteBots(ctx context.Context, token string) ([]domain.WasteBot, error) {
	var bots []domain.WasteBot
	if err := c.do(ctx, http.MethodGet, "/wastebots/", token, nil, &bots); err != nil {
		return nil, err
	}
	return bots, nil
}

func (c *Client) CreateWasteBot(ctx context.Context, token string, b NewWasteBot) (*domain.WasteBot, error) {
	var created domain.WasteBot
	if err := c.do(ctx, http.MethodPost, "/wastebots/", token, b, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteWasteBot(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath("wastebots", id), token, nil, nil)
}

// SetWasteBotStatus patches only the status field.
func (c *Client) SetWasteBotStatus(ctx context.Context, token string, id int64, status string) (*domain.WasteBot, error) {
	updated := domain.WasteBot{ID: id, Status: status}
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, itemPath("wastebots", id), token, body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// itemPath builds the trailing-slash detail URL the API routes expect.
func itemPath(collection string, id int64) string {
	return fmt.Sprintf("/%s/%d/", collection, id)
}

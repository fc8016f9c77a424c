package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
)

const (
	TypeAll        = "all"
	TypeRequests   = "requests"
	TypeBusinesses = "businesses"
	TypeClients    = "clients"

	perKind  = 10
	allLimit = 20
)

type Hit struct {
	Type        string `json:"type"`
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Results maps a kind ("requests", "businesses", "clients", "all") to its hits.
type Results map[string][]Hit

func ValidType(t string) bool {
	switch t {
	case TypeAll, TypeRequests, TypeBusinesses, TypeClients:
		return true
	}
	return false
}

// like returns the case-insensitive match operator for the current dialect.
func like() string {
	if database.DB.Dialector.Name() == "postgres" {
		return "ILIKE"
	}
	return "LIKE"
}

func pattern(q string) string {
	return "%" + strings.TrimSpace(q) + "%"
}

// Run searches every kind selected by kind, restricted to what actor may see.
func Run(actor *models.User, q, kind string) (Results, error) {
	results := Results{}

	if kind == TypeAll || kind == TypeRequests {
		hits, err := requests(actor, q)
		if err != nil {
			return nil, err
		}
		results[TypeRequests] = hits
	}
	if kind == TypeAll || kind == TypeBusinesses {
		hits, err := businesses(actor, q)
		if err != nil {
			return nil, err
		}
		results[TypeBusinesses] = hits
	}
	if (kind == TypeAll || kind == TypeClients) && actor.IsAdmin() {
		hits, err := clients(q)
		if err != nil {
			return nil, err
		}
		results[TypeClients] = hits
	}

	if kind == TypeAll {
		all := []Hit{}
		for _, k := range []string{TypeRequests, TypeBusinesses, TypeClients} {
			all = append(all, results[k]...)
		}
		if len(all) > allLimit {
			all = all[:allLimit]
		}
		results[TypeAll] = all
	}
	return results, nil
}

func requests(actor *models.User, q string) ([]Hit, error) {
	op := like()
	cond := fmt.Sprintf("request_types.name %s ? OR businesses.name %s ?", op, op)
	args := []interface{}{pattern(q), pattern(q)}
	if id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(q), "#"), 10, 64); err == nil {
		cond += " OR requests.id = ?"
		args = append(args, id)
	}

	var list []models.Request
	err := database.DB.Model(&models.Request{}).
		Scopes(access.ScopeRequests(database.DB, actor)).
		Joins("LEFT JOIN request_types ON request_types.id = requests.request_type_id").
		Joins("LEFT JOIN businesses ON businesses.id = requests.business_id").
		Where(cond, args...).
		Preload("RequestType").Preload("Business").
		Order("requests.created_at DESC").
		Limit(perKind).
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(list))
	for _, r := range list {
		title := fmt.Sprintf("Request #%d", r.ID)
		if r.RequestType != nil {
			title = r.RequestType.Name
		}
		desc := "N/A"
		if r.Business != nil {
			desc = r.Business.Name
		}
		hits = append(hits, Hit{
			Type:        "request",
			ID:          r.ID,
			Title:       title,
			Description: desc,
			URL:         fmt.Sprintf("/app/requests/%d", r.ID),
		})
	}
	return hits, nil
}

func businesses(actor *models.User, q string) ([]Hit, error) {
	op := like()

	var list []models.Business
	err := database.DB.Model(&models.Business{}).
		Scopes(access.ScopeBusinesses(database.DB, actor)).
		Where(fmt.Sprintf("businesses.name %s ? OR businesses.industry %s ?", op, op), pattern(q), pattern(q)).
		Order("businesses.name ASC").
		Limit(perKind).
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(list))
	for _, b := range list {
		desc := b.Industry
		if desc == "" {
			desc = "N/A"
		}
		hits = append(hits, Hit{
			Type:        "business",
			ID:          b.ID,
			Title:       b.Name,
			Description: desc,
			URL:         fmt.Sprintf("/app/businesses/%d", b.ID),
		})
	}
	return hits, nil
}

func clients(q string) ([]Hit, error) {
	op := like()

	var list []models.User
	err := database.DB.
		Where("role = ?", models.RoleClient).
		Where(fmt.Sprintf("name %s ? OR email %s ?", op, op), pattern(q), pattern(q)).
		Order("name ASC").
		Limit(perKind).
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(list))
	for _, u := range list {
		hits = append(hits, Hit{
			Type:        "client",
			ID:          u.ID,
			Title:       u.Name,
			Description: u.Email,
			URL:         fmt.Sprintf("/app/admin/clients/%d", u.ID),
		})
	}
	return hits, nil
}


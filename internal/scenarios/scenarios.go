// Package scenarios holds the named demonstration missions served by the API
// and the CLI.
package scenarios

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/saviobatista/uav-deconfliction/internal/parser"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

//go:embed catalog.json
var catalogJSON []byte

// Scenario is a named check request
type Scenario struct {
	ID             string               `json:"-"`
	Description    string               `json:"description"`
	PrimaryMission types.PrimaryMission `json:"primary_mission"`
	OtherMissions  []types.OtherMission `json:"other_missions"`
}

// Request returns the scenario as a check request
func (s *Scenario) Request() types.CheckRequest {
	return types.CheckRequest{PrimaryMission: s.PrimaryMission, OtherMissions: s.OtherMissions}
}

// Summary is the listing form of a scenario
type Summary struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

var loadCatalog = sync.OnceValues(func() (map[string]*Scenario, error) {
	return decodeCatalog(catalogJSON)
})

func decodeCatalog(data []byte) (map[string]*Scenario, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode scenario catalog: %w", err)
	}

	catalog := make(map[string]*Scenario, len(entries))
	for i, entry := range entries {
		var meta struct {
			ID          string `json:"id"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(entry, &meta); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i, err)
		}
		if meta.ID == "" {
			return nil, fmt.Errorf("scenario %d: missing id", i)
		}
		if _, dup := catalog[meta.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario %q", meta.ID)
		}

		req, err := parser.ParseRequest(entry)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", meta.ID, err)
		}
		catalog[meta.ID] = &Scenario{
			ID:             meta.ID,
			Description:    meta.Description,
			PrimaryMission: req.PrimaryMission,
			OtherMissions:  req.OtherMissions,
		}
	}
	return catalog, nil
}

func mustCatalog() map[string]*Scenario {
	catalog, err := loadCatalog()
	if err != nil {
		panic(err)
	}
	return catalog
}

// Get returns the scenario with the given id
func Get(id string) (*Scenario, bool) {
	s, ok := mustCatalog()[id]
	return s, ok
}

// List returns every scenario's id and description, sorted by id
func List() []Summary {
	catalog := mustCatalog()
	out := make([]Summary, 0, len(catalog))
	for _, s := range catalog {
		out = append(out, Summary{ID: s.ID, Description: s.Description})
	}
	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// IDs returns the sorted scenario ids
func IDs() []string {
	list := List()
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

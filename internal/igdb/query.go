package igdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gaming-library/internal/domain"
)

// GameFields is the field projection requested for every game query
const GameFields = "id,name,cover.url,summary,first_release_date,genres.name,platforms.name"

const searchLimit = 10

// BuildSearchQuery renders an Apicalypse search query for term, narrowed by
// filters. Clauses are emitted in a fixed order and joined with " & ". A list
// filter containing a non-integer token contributes no clause at all.
func BuildSearchQuery(term string, filters *domain.FilterSet) string {
	where := buildWhere(filters)
	return fmt.Sprintf(`search "%s";%s fields %s; limit %d;`, term, renderWhere(where), GameFields, searchLimit)
}

func renderWhere(where string) string {
	if where == "" {
		return ""
	}
	return " where " + where + ";"
}

func buildWhere(f *domain.FilterSet) string {
	if f == nil {
		return ""
	}

	var clauses []string
	add := func(clause string) {
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}

	add(idClause("platforms", f.Platforms))
	add(yearsClause(f.Years))
	add(yearRangeClause(f.YearRange))
	add(idClause("genres", f.Genres))
	add(idClause("age_ratings", f.Ratings))
	add(idClause("game_modes", f.GameModes))
	add(idClause("themes", f.Themes))
	add(idClause("player_perspectives", f.PlayerPerspectives))
	add(idClause("status", f.ReleaseStatus))
	add(idClause("franchises", f.Franchises))
	add(idClause("involved_companies.company", f.Companies))
	add(idClause("keywords", f.Keywords))
	add(idClause("multiplayer_modes", f.MultiplayerModes))
	add(ratingRangeClause(f.MinRating, f.MaxRating))
	add(metacriticRangeClause(f.MinMetacritic, f.MaxMetacritic))
	if ids := idClause("age_ratings.rating", f.EsrbRatings); ids != "" {
		add("age_ratings.category = 1 & " + ids)
	}
	add(idClause("game_engines", f.GameEngines))
	add(idClause("collection", f.Collections))

	return strings.Join(clauses, " & ")
}

// parseIDs converts every token to an integer, failing if any token is not one
func parseIDs(tokens []string) ([]int, bool) {
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, false
		}
		ids = append(ids, n)
	}
	return ids, true
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func idClause(field string, tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	ids, ok := parseIDs(tokens)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s = (%s)", field, joinInts(ids))
}

// yearBounds returns the UTC unix timestamps of Jan 1 of year and of year+1
func yearBounds(year int) (int64, int64) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Unix(), start.AddDate(1, 0, 0).Unix()
}

// Calendar years whose whole window, up to Jan 1 of the next year, is
// representable as a four digit year.
const (
	minCalendarYear = 1
	maxCalendarYear = 9998
)

func releaseWindow(start, end int64) string {
	return fmt.Sprintf("first_release_date >= %d & first_release_date < %d", start, end)
}

func yearsClause(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	years, ok := parseIDs(tokens)
	if !ok {
		return ""
	}
	for _, y := range years {
		if y < minCalendarYear || y > maxCalendarYear {
			return ""
		}
	}
	if len(years) == 1 {
		return releaseWindow(yearBounds(years[0]))
	}
	conds := make([]string, len(years))
	for i, y := range years {
		conds[i] = "(" + releaseWindow(yearBounds(y)) + ")"
	}
	return strings.Join(conds, " | ")
}

func yearRangeClause(r *domain.YearRange) string {
	if r == nil {
		return ""
	}
	start, _ := yearBounds(r.Start)
	_, end := yearBounds(r.End)
	return releaseWindow(start, end)
}

func boundsClause(field string, min, max *int) string {
	var parts []string
	if min != nil {
		parts = append(parts, fmt.Sprintf("%s >= %d", field, *min))
	}
	if max != nil {
		parts = append(parts, fmt.Sprintf("%s <= %d", field, *max))
	}
	return strings.Join(parts, " & ")
}

// ratingRangeClause truncates fractional bounds toward zero
func ratingRangeClause(min, max *float64) string {
	return boundsClause("aggregated_rating", truncate(min), truncate(max))
}

// Metacritic scores are matched against aggregated_rating as well; the catalog
// exposes no separate metacritic field.
func metacriticRangeClause(min, max *int) string {
	return boundsClause("aggregated_rating", min, max)
}

func truncate(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

// idListQuery fetches a batch of games by id
func idListQuery(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("where id = (%s); fields %s; limit %d;", strings.Join(parts, ","), GameFields, len(ids))
}

const referenceQuery = "fields id,name; limit 100;"

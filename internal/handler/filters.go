package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gaming-library/internal/domain"
)

// parseFilters reads catalog search filters from query parameters. List
// parameters are comma separated and passed through as raw tokens.
func parseFilters(q url.Values) (*domain.FilterSet, error) {
	f := &domain.FilterSet{
		Platforms:          listParam(q, "platforms"),
		Years:              listParam(q, "years"),
		Genres:             listParam(q, "genres"),
		Ratings:            listParam(q, "ratings"),
		GameModes:          listParam(q, "game_modes"),
		Themes:             listParam(q, "themes"),
		PlayerPerspectives: listParam(q, "player_perspectives"),
		ReleaseStatus:      listParam(q, "release_status"),
		Franchises:         listParam(q, "franchises"),
		Companies:          listParam(q, "companies"),
		Keywords:           listParam(q, "keywords"),
		MultiplayerModes:   listParam(q, "multiplayer_modes"),
		EsrbRatings:        listParam(q, "esrb_ratings"),
		GameEngines:        listParam(q, "game_engines"),
		Collections:        listParam(q, "collections"),
	}

	start, hasStart, err := intParam(q, "year_start")
	if err != nil {
		return nil, err
	}
	end, hasEnd, err := intParam(q, "year_end")
	if err != nil {
		return nil, err
	}
	switch {
	case hasStart && hasEnd:
		f.YearRange = &domain.YearRange{Start: start, End: end}
	case hasStart || hasEnd:
		return nil, &domain.ValidationError{Field: "year_range", Reason: "year_start and year_end must be given together"}
	}

	if f.MinRating, err = floatParam(q, "min_rating"); err != nil {
		return nil, err
	}
	if f.MaxRating, err = floatParam(q, "max_rating"); err != nil {
		return nil, err
	}
	if v, ok, err := intParam(q, "min_metacritic"); err != nil {
		return nil, err
	} else if ok {
		f.MinMetacritic = &v
	}
	if v, ok, err := intParam(q, "max_metacritic"); err != nil {
		return nil, err
	} else if ok {
		f.MaxMetacritic = &v
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func listParam(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, tok := range strings.Split(raw, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

func intParam(q url.Values, name string) (int, bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &domain.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return v, true, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &domain.ValidationError{Field: name, Reason: "must be a number"}
	}
	return &v, nil
}

// positiveIDs parses a comma separated id list, keeping only positive integers
func positiveIDs(raw string) []int64 {
	ids := []int64{}
	for _, tok := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

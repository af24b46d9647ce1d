package domain

const (
	MinFilterYear = 1970
	MaxFilterYear = 2030
)

// YearRange is an inclusive span of release years
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FilterSet holds optional catalog search criteria. List fields carry the
// raw ID tokens supplied by the caller; a token that is not an integer
// causes the query builder to drop that field's clause.
type FilterSet struct {
	Platforms          []string   `json:"platforms,omitempty"`
	Years              []string   `json:"years,omitempty"`
	YearRange          *YearRange `json:"year_range,omitempty"`
	Genres             []string   `json:"genres,omitempty"`
	Ratings            []string   `json:"ratings,omitempty"`
	GameModes          []string   `json:"game_modes,omitempty"`
	Themes             []string   `json:"themes,omitempty"`
	PlayerPerspectives []string   `json:"player_perspectives,omitempty"`
	ReleaseStatus      []string   `json:"release_status,omitempty"`
	Franchises         []string   `json:"franchises,omitempty"`
	Companies          []string   `json:"companies,omitempty"`
	Keywords           []string   `json:"keywords,omitempty"`
	MultiplayerModes   []string   `json:"multiplayer_modes,omitempty"`
	MinRating          *float64   `json:"min_rating,omitempty"`
	MaxRating          *float64   `json:"max_rating,omitempty"`
	MinMetacritic      *int       `json:"min_metacritic,omitempty"`
	MaxMetacritic      *int       `json:"max_metacritic,omitempty"`
	EsrbRatings        []string   `json:"esrb_ratings,omitempty"`
	GameEngines        []string   `json:"game_engines,omitempty"`
	Collections        []string   `json:"collections,omitempty"`
}

// Validate checks the bounded numeric fields. List tokens are not checked here.
func (f *FilterSet) Validate() error {
	if f == nil {
		return nil
	}
	if f.YearRange != nil {
		if f.YearRange.Start < MinFilterYear || f.YearRange.Start > MaxFilterYear {
			return &ValidationError{Field: "year_range.start", Reason: "must be between 1970 and 2030"}
		}
		if f.YearRange.End < MinFilterYear || f.YearRange.End > MaxFilterYear {
			return &ValidationError{Field: "year_range.end", Reason: "must be between 1970 and 2030"}
		}
	}
	if err := checkPercent("min_rating", f.MinRating); err != nil {
		return err
	}
	if err := checkPercent("max_rating", f.MaxRating); err != nil {
		return err
	}
	if f.MinMetacritic != nil && (*f.MinMetacritic < 0 || *f.MinMetacritic > 100) {
		return &ValidationError{Field: "min_metacritic", Reason: "must be between 0 and 100"}
	}
	if f.MaxMetacritic != nil && (*f.MaxMetacritic < 0 || *f.MaxMetacritic > 100) {
		return &ValidationError{Field: "max_metacritic", Reason: "must be between 0 and 100"}
	}
	return nil
}

func checkPercent(field string, v *float64) error {
	if v != nil && (*v < 0 || *v > 100) {
		return &ValidationError{Field: field, Reason: "must be between 0 and 100"}
	}
	return nil
}

package catalog

// MediaItem is one title as returned by the catalog's list endpoints.
// Movies carry title/release_date, TV carries name/first_air_date; the
// remaining fields are present-or-absent but never malformed.
type MediaItem struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	VoteCount    int64   `json:"vote_count,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	MediaType    string  `json:"media_type,omitempty"`
	GenreIDs     []int64 `json:"genre_ids,omitempty"`
	Popularity   float64 `json:"popularity,omitempty"`
}

// DisplayTitle returns whichever of title/name is set.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// ReleaseDateOrAirDate returns whichever date field is set.
func (m MediaItem) ReleaseDateOrAirDate() string {
	if m.ReleaseDate != "" {
		return m.ReleaseDate
	}
	return m.FirstAirDate
}

// Page is one page of catalog results.
type Page struct {
	Page         int         `json:"page"`
	Results      []MediaItem `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// Genre is a catalog genre tag.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Details is the full record for a single title.
type Details struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title,omitempty"`
	Name             string  `json:"name,omitempty"`
	Tagline          string  `json:"tagline,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	FirstAirDate     string  `json:"first_air_date,omitempty"`
	PosterPath       string  `json:"poster_path,omitempty"`
	BackdropPath     string  `json:"backdrop_path,omitempty"`
	VoteAverage      float64 `json:"vote_average,omitempty"`
	VoteCount        int64   `json:"vote_count,omitempty"`
	Runtime          int     `json:"runtime,omitempty"`
	NumberOfSeasons  int     `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int     `json:"number_of_episodes,omitempty"`
	Status           string  `json:"status,omitempty"`
	Genres           []Genre `json:"genres,omitempty"`
	Homepage         string  `json:"homepage,omitempty"`
}

// DisplayTitle returns whichever of title/name is set.
func (d Details) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// CastMember is one cast credit for a title.
type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
	Order       int    `json:"order"`
}

// CrewMember is one crew credit for a title.
type CrewMember struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job,omitempty"`
	Department string `json:"department,omitempty"`
}

// Credits holds cast and crew for a title.
type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Video is one trailer/teaser/clip attached to a title.
type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// Videos is the video list response for a title.
type Videos struct {
	ID      int64   `json:"id"`
	Results []Video `json:"results"`
}

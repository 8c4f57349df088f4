package sonarr

import "github.com/fluxarr/fluxarr/internal/models"

// Series is the subset of the Sonarr series record the app uses.
type Series struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	TVDBID     int64   `json:"tvdbId"`
	TitleSlug  string  `json:"titleSlug"`
	Status     string  `json:"status"`
	Monitored  bool    `json:"monitored"`
	Path       string  `json:"path"`
	Year       int     `json:"year"`
	Images     []Image `json:"images"`
	Seasons    []struct {
		SeasonNumber int  `json:"seasonNumber"`
		Monitored    bool `json:"monitored"`
	} `json:"seasons"`
	Statistics struct {
		EpisodeCount      int64 `json:"episodeCount"`
		EpisodeFileCount  int64 `json:"episodeFileCount"`
		SizeOnDisk        int64 `json:"sizeOnDisk"`
	} `json:"statistics"`
}

type Image struct {
	CoverType string `json:"coverType"`
	URL       string `json:"url"`
}

// AddRequest is the POST /api/v3/series payload.
type AddRequest struct {
	Title            string  `json:"title"`
	TVDBID           int64   `json:"tvdbId"`
	TitleSlug        string  `json:"titleSlug"`
	QualityProfileID int64   `json:"qualityProfileId"`
	RootFolderPath   string  `json:"rootFolderPath"`
	Monitored        bool    `json:"monitored"`
	Images           []Image `json:"images"`
	AddOptions       struct {
		SearchForMissingEpisodes bool `json:"searchForMissingEpisodes"`
	} `json:"addOptions"`
}

// NewAddRequest builds an add payload from a lookup result and the stored
// instance defaults.
func NewAddRequest(s Series, cfg models.ArrConfig) AddRequest {
	req := AddRequest{
		Title:            s.Title,
		TVDBID:           s.TVDBID,
		TitleSlug:        s.TitleSlug,
		QualityProfileID: cfg.QualityProfileID,
		RootFolderPath:   cfg.RootFolderPath,
		Monitored:        true,
		Images:           s.Images,
	}
	req.AddOptions.SearchForMissingEpisodes = true
	return req
}

// ToLibraryEntry maps a series record onto the cached library row shape.
func (s Series) ToLibraryEntry(configID int64) models.SonarrLibraryEntry {
	entry := models.SonarrLibraryEntry{
		ConfigID:         configID,
		SonarrID:         s.ID,
		Title:            s.Title,
		Monitored:        s.Monitored,
		EpisodeCount:     s.Statistics.EpisodeCount,
		EpisodeFileCount: s.Statistics.EpisodeFileCount,
		SizeOnDisk:       s.Statistics.SizeOnDisk,
	}
	if s.TVDBID != 0 {
		id := s.TVDBID
		entry.TVDBID = &id
	}
	if s.Status != "" {
		status := s.Status
		entry.Status = &status
	}
	if s.Path != "" {
		path := s.Path
		entry.Path = &path
	}
	return entry
}

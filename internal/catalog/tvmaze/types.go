package tvmaze

import "github.com/fluxarr/fluxarr/internal/models"

// Show mirrors the upstream show record, nested objects included.
type Show struct {
	ID             int64    `json:"id"`
	URL            string   `json:"url"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Language       *string  `json:"language"`
	Genres         []string `json:"genres"`
	Status         string   `json:"status"`
	Runtime        *int64   `json:"runtime"`
	AverageRuntime *int64   `json:"averageRuntime"`
	Premiered      *string  `json:"premiered"`
	Ended          *string  `json:"ended"`
	OfficialSite   *string  `json:"officialSite"`
	Schedule       struct {
		Time string   `json:"time"`
		Days []string `json:"days"`
	} `json:"schedule"`
	Rating struct {
		Average *float64 `json:"average"`
	} `json:"rating"`
	Weight     int64       `json:"weight"`
	Network    *Network    `json:"network"`
	WebChannel *WebChannel `json:"webChannel"`
	Externals  struct {
		TVRage  *int64  `json:"tvrage"`
		TheTVDB *int64  `json:"thetvdb"`
		IMDB    *string `json:"imdb"`
	} `json:"externals"`
	Image *struct {
		Medium   *string `json:"medium"`
		Original *string `json:"original"`
	} `json:"image"`
	Summary *string `json:"summary"`
	Updated int64   `json:"updated"`
}

type Network struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country *struct {
		Name *string `json:"name"`
		Code *string `json:"code"`
	} `json:"country"`
}

type WebChannel struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country *struct {
		Code *string `json:"code"`
	} `json:"country"`
}

// ToModel flattens the nested upstream record into a catalog row.
func (s Show) ToModel() models.Show {
	show := models.Show{
		ID:             s.ID,
		Name:           s.Name,
		Type:           s.Type,
		Language:       s.Language,
		Genres:         s.Genres,
		Status:         s.Status,
		Runtime:        s.Runtime,
		AverageRuntime: s.AverageRuntime,
		Premiered:      s.Premiered,
		Ended:          s.Ended,
		OfficialSite:   s.OfficialSite,
		ScheduleDays:   s.Schedule.Days,
		RatingAverage:  s.Rating.Average,
		Weight:         s.Weight,
		Summary:        s.Summary,
		IMDBID:         s.Externals.IMDB,
		TheTVDBID:      s.Externals.TheTVDB,
		TVRageID:       s.Externals.TVRage,
		UpdatedAt:      s.Updated,
	}

	if s.Schedule.Time != "" {
		t := s.Schedule.Time
		show.ScheduleTime = &t
	}
	if s.Network != nil {
		id := s.Network.ID
		name := s.Network.Name
		show.NetworkID = &id
		show.NetworkName = &name
		if s.Network.Country != nil {
			show.NetworkCountryName = s.Network.Country.Name
			show.NetworkCountryCode = s.Network.Country.Code
		}
	}
	if s.WebChannel != nil {
		id := s.WebChannel.ID
		name := s.WebChannel.Name
		show.WebChannelID = &id
		show.WebChannelName = &name
		if s.WebChannel.Country != nil {
			show.WebChannelCountryCode = s.WebChannel.Country.Code
		}
	}
	if s.Image != nil {
		show.ImageMedium = s.Image.Medium
		show.ImageOriginal = s.Image.Original
	}
	return show
}

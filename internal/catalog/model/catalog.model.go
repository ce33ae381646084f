package model

import (
	"encoding/json"

	"datastory/store"
)

// AllCategory is the pseudo-category that disables filtering.
const AllCategory = "all"

type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
	Img      string `json:"img,omitempty"`
	Body     string `json:"body,omitempty"` // path of the body text file, relative to the content dir
	BodyText string `json:"body_text,omitempty"`
	// Extra keeps index fields such as dates, tags or authors that the site
	// does not use but other tools write.
	Extra *store.Extra `json:"-"`
}

type itemFields Item

func (i Item) MarshalJSON() ([]byte, error) {
	fields, err := json.Marshal(itemFields(i))
	if err != nil {
		return nil, err
	}
	return store.JoinExtra(fields, i.Extra)
}

func (i *Item) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*itemFields)(i)); err != nil {
		return err
	}
	extra, err := store.SplitExtra(data, "id", "title", "category", "summary", "img", "body", "body_text")
	i.Extra = extra
	return err
}

type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Categories is the closed set of catalog categories, "all" first.
var Categories = []Category{
	{AllCategory, "All"},
	{"community", "Individuals, family and community"},
	{"politics", "Politics and civil society"},
	{"education", "Education and care"},
	{"work", "Work and jobs"},
	{"economy", "Economy and living standards"},
	{"environment", "Energy and environment"},
	{"technology", "Technology and information"},
	{"space", "Space and regions"},
}

// IsCategory reports whether key names a real category; "all" is not one.
func IsCategory(key string) bool {
	if key == AllCategory {
		return false
	}
	for _, c := range Categories {
		if c.Key == key {
			return true
		}
	}
	return false
}

// UpdateItemRequest carries an admin edit; nil fields are left unchanged.
type UpdateItemRequest struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Summary  *string `json:"summary"`
	Img      *string `json:"img"`
	BodyText *string `json:"body_text"`
}

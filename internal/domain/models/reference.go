package models

import (
	"regexp"
	"strings"
)

// City is a feed location. Param is the raw query fragment the feed expects, e.g. "city=Київ".
type City struct {
	ID             int
	Name           string `gorm:"uniqueIndex"`
	NormalizedName string `gorm:"index"`
	Param          string
}

func (City) TableName() string {
	return "cities"
}

// Category is a job category (position) of the feed, Param e.g. "category=Golang".
type Category struct {
	ID             int
	Name           string `gorm:"uniqueIndex"`
	NormalizedName string `gorm:"index"`
	Param          string
}

func (Category) TableName() string {
	return "categories"
}

func NewCity(id int, name, param string) City {
	return City{ID: id, Name: name, NormalizedName: NormalizeName(name), Param: param}
}

func NewCategory(id int, name, param string) Category {
	return Category{ID: id, Name: name, NormalizedName: NormalizeName(name), Param: param}
}

var nameNoise = regexp.MustCompile(`[^\p{L}\p{N}+#]+`)

// NormalizeName makes user input comparable with stored names: case, apostrophes and
// punctuation are ignored.
func NormalizeName(name string) string {
	str := strings.ToLower(name)
	str = strings.ReplaceAll(str, "ё", "е")
	return nameNoise.ReplaceAllString(str, "")
}

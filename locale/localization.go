package locale

import (
	"os"

	"github.com/SayaAndy/image-gallery/internal/gallery"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type LocaleConfig struct {
	Gallery  GalleryConfig  `yaml:"Gallery" json:"Gallery" validate:"required"`
	Page     PageConfig     `yaml:"Page" json:"Page" validate:"required"`
	Metadata MetadataConfig `yaml:"Metadata" json:"Metadata"`
}

type GalleryConfig struct {
	Close             string `yaml:"Close" json:"Close" validate:"required"`
	Next              string `yaml:"Next" json:"Next" validate:"required"`
	Previous          string `yaml:"Previous" json:"Previous" validate:"required"`
	ViewerUnavailable string `yaml:"ViewerUnavailable" json:"ViewerUnavailable" validate:"required"`
}

type PageConfig struct {
	Header       string `yaml:"Header" json:"Header" validate:"required"`
	ChooseLang   string `yaml:"ChooseLang" json:"ChooseLang"`
	NotFound     string `yaml:"NotFound" json:"NotFound"`
	SessionEnded string `yaml:"SessionEnded" json:"SessionEnded"`
}

type MetadataConfig struct {
	Published string `yaml:"Published" json:"Published"`
	Tags      string `yaml:"Tags" json:"Tags"`
}

// Labels turns the localized strings into the ones a gallery renders with.
func (l *LocaleConfig) Labels() gallery.Labels {
	if l == nil {
		return gallery.DefaultLabels
	}
	return gallery.Labels{
		Close:             l.Gallery.Close,
		Next:              l.Gallery.Next,
		Previous:          l.Gallery.Previous,
		ViewerUnavailable: l.Gallery.ViewerUnavailable,
	}
}

func LoadConfig(path string, config *LocaleConfig) error {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err = yaml.Unmarshal(fileBytes, config); err != nil {
		return err
	}

	return nil
}

func InitConfig(path string) (*LocaleConfig, error) {
	config := &LocaleConfig{}
	if err := LoadConfig(path, config); err != nil {
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}

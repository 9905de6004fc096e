package app_setting

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// ServerAppSetting tunes the api server deployment. Values that the yaml file
// leaves out fall back to the defaults below, env-specific secrets stay in
// .env files.
type ServerAppSetting struct {
	// Address the api server listens on.
	SERVER_ADDR string `yaml:"SERVER_ADDR"`
	// Ping the row store every other interval to keep the free-tier database
	// from idling out.
	HEARTBEAT_INTERVAL_SECOND int64 `yaml:"HEARTBEAT_INTERVAL_SECOND"`
	// Store uploaded media in S3 instead of Cloudinary.
	USE_S3_MEDIA_STORE bool `yaml:"USE_S3_MEDIA_STORE"`
}

func DefaultServerAppSetting() ServerAppSetting {
	return ServerAppSetting{
		SERVER_ADDR:               ":8080",
		HEARTBEAT_INTERVAL_SECOND: 600,
	}
}

// ParseServerAppSetting reads the yaml file at path, layered over the
// defaults. An empty path returns the defaults unchanged.
func ParseServerAppSetting(path string) (ServerAppSetting, error) {
	c := DefaultServerAppSetting()
	if path == "" {
		return c, nil
	}
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(yamlFile, &c); err != nil {
		return c, err
	}
	return c, nil
}

package constants

const (
	Version        = `0.1.0`
	AppName        = `folio`
	ConfigFile     = `settings`
	ConfigFileType = `yaml`
	ConfigDir      = `/.folio/`

	// SettingsVersion is the schema version written to the settings file.
	SettingsVersion = 1

	MaxRecentFiles          = 10
	DefaultLeftPanelWidth   = 260.0
	DefaultThumbnailEntries = 256
	DefaultThumbnailTimeout = `3s`
	DefaultThumbnailScale   = 2.0
	MaxThumbnailScale       = 3.0
	DefaultDebounce         = `500ms`
	DefaultWorkers          = 4

	SidecarSuffix = `.outline.yaml`
)

// DocumentExtensions lists the file extensions enumerated from a workspace.
var DocumentExtensions = []string{
	".pdf", ".md", ".markdown", ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff",
}

package gpu

// Info describes the driver behind a context.
type Info struct {
	Vendor   string
	Renderer string
	Version  string
	GLSL     string
}

// QueryInfo reads the driver strings. Valid once the context is current.
func QueryInfo(rc *RenderContext) Info {
	return Info{
		Vendor:   rc.dev.GetString(Vendor),
		Renderer: rc.dev.GetString(Renderer),
		Version:  rc.dev.GetString(Version),
		GLSL:     rc.dev.GetString(ShadingLanguageVersion),
	}
}

// Log writes the driver strings at info level.
func (i Info) Log() {
	Logger().Info("opengl context",
		"vendor", i.Vendor,
		"renderer", i.Renderer,
		"version", i.Version,
		"glsl", i.GLSL)
}

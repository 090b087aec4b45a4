package config

import "runtime"

// ApplyDefaults fills unset fields. Explicit values always win.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Source
	if s.Root == "" {
		s.Root = "."
	}
	if s.Branch == "" {
		s.Branch = "main"
	}
	if s.ExamplesDir == "" {
		s.ExamplesDir = "examples"
	}
	if s.DocsDir == "" {
		s.DocsDir = "docs"
	}
	if s.AssetsDir == "" {
		s.AssetsDir = "assets"
	}
	if s.Readme == "" {
		s.Readme = "README.md"
	}

	o := &cfg.Output
	if o.Root == "" {
		o.Root = "."
	}
	if o.PagesDir == "" {
		o.PagesDir = "pages"
	}
	if o.CookbookDir == "" {
		o.CookbookDir = "cookbook"
	}
	if o.PublicAssetsDir == "" {
		o.PublicAssetsDir = "public/assets"
	}

	l := &cfg.Locales
	if l.Default == "" {
		l.Default = "en"
	}
	if l.Secondary == "" {
		l.Secondary = "zh-CN"
	}
	if l.SecondaryMarker == "" {
		l.SecondaryMarker = "_zh"
	}

	if cfg.Build.Concurrency <= 0 {
		cfg.Build.Concurrency = runtime.NumCPU()
	}
	if cfg.Notify.NATSURL != "" && cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "docsite.build.completed"
	}
}

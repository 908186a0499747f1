package tsconfig

// override returns top when it is present and base otherwise.
func override[T any](base, top *T) *T {
	if top != nil {
		return top
	}
	return base
}

func overrideSlice[T any](base, top []T) []T {
	if top != nil {
		return top
	}
	return base
}

func overrideMap[K comparable, V any](base, top map[K]V) map[K]V {
	if top != nil {
		return top
	}
	return base
}

// Merge applies c on top of parent and returns the flattened result.
// Neither input is modified and the result has no Extends.
func (c *Config) Merge(parent *Config) *Config {
	if parent == nil {
		parent = &Config{}
	}
	return &Config{
		CompilerOptions: mergeOptions(parent.CompilerOptions, c.CompilerOptions),
		Include:         overrideSlice(parent.Include, c.Include),
		Exclude:         overrideSlice(parent.Exclude, c.Exclude),
	}
}

func mergeOptions(base, top *CompilerOptions) *CompilerOptions {
	switch {
	case base == nil && top == nil:
		return nil
	case base == nil:
		out := *top
		return &out
	case top == nil:
		out := *base
		return &out
	}
	return &CompilerOptions{
		RootDir:                 override(base.RootDir, top.RootDir),
		OutDir:                  override(base.OutDir, top.OutDir),
		Target:                  override(base.Target, top.Target),
		Module:                  override(base.Module, top.Module),
		JSX:                     override(base.JSX, top.JSX),
		JSXFactory:              override(base.JSXFactory, top.JSXFactory),
		JSXFragmentFactory:      override(base.JSXFragmentFactory, top.JSXFragmentFactory),
		JSXImportSource:         override(base.JSXImportSource, top.JSXImportSource),
		ExperimentalDecorators:  override(base.ExperimentalDecorators, top.ExperimentalDecorators),
		EmitDecoratorMetadata:   override(base.EmitDecoratorMetadata, top.EmitDecoratorMetadata),
		UseDefineForClassFields: override(base.UseDefineForClassFields, top.UseDefineForClassFields),
		SourceMap:               override(base.SourceMap, top.SourceMap),
		InlineSourceMap:         override(base.InlineSourceMap, top.InlineSourceMap),
		InlineSources:           override(base.InlineSources, top.InlineSources),
		AllowJS:                 override(base.AllowJS, top.AllowJS),
		Declaration:             override(base.Declaration, top.Declaration),
		DeclarationMap:          override(base.DeclarationMap, top.DeclarationMap),
		EmitDeclarationOnly:     override(base.EmitDeclarationOnly, top.EmitDeclarationOnly),
		StripInternal:           override(base.StripInternal, top.StripInternal),
		IsolatedDeclarations:    override(base.IsolatedDeclarations, top.IsolatedDeclarations),
		RemoveComments:          override(base.RemoveComments, top.RemoveComments),
		BaseURL:                 override(base.BaseURL, top.BaseURL),
		Paths:                   overrideMap(base.Paths, top.Paths),
	}
}

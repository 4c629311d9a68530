package param

// Builder provides a fluent API for creating parameters
type Builder struct {
	param *Parameter
}

// Float creates a real-valued parameter builder with a 0..1 range
func Float(name string) *Builder {
	return &Builder{
		param: &Parameter{
			Name: name,
			Kind: KindFloat,
			Min:  0,
			Max:  1,
		},
	}
}

// Int creates an integer parameter builder with a 0..100 range
func Int(name string) *Builder {
	return &Builder{
		param: &Parameter{
			Name: name,
			Kind: KindInt,
			Min:  0,
			Max:  100,
		},
	}
}

// Range sets the min and max values
func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default sets the default value
func (b *Builder) Default(value float64) *Builder {
	b.param.DefaultValue = value
	return b
}

// Unit sets the unit string
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Odd restricts an integer parameter to odd values
func (b *Builder) Odd() *Builder {
	b.param.Odd = true
	return b
}

// Build returns the parameter initialised to its default
func (b *Builder) Build() *Parameter {
	b.param.DefaultValue = b.param.Constrain(b.param.DefaultValue)
	b.param.Reset()
	return b.param
}

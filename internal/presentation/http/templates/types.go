package templates

// OptionView is one entry of a slug option list.
type OptionView struct {
	Value string
	Label string
}

// OptionListData bundles template data for a <select> of slugged records.
type OptionListData struct {
	Name     string
	Selected string
	Options  []OptionView
}

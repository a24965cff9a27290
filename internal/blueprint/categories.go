package blueprint

// Category is the role family of a spec. Priority, dependency and
// collaboration rules are written against categories, never against names.
type Category string

const (
	CategoryArchitecture Category = "architecture"
	CategoryFrontend     Category = "frontend"
	CategoryBackend      Category = "backend"
	CategoryMobile       Category = "mobile"
	CategoryML           Category = "ml"
	CategoryQA           Category = "qa"
	CategoryDevOps       Category = "devops"
	CategorySecurity     Category = "security"
	CategoryPerformance  Category = "performance"
	CategoryData         Category = "data"
	CategoryIntegration  Category = "integration"
	CategoryGeneralist   Category = "generalist"
)

// IsDomain reports whether specs of this category build product features.
func (c Category) IsDomain() bool {
	switch c {
	case CategoryFrontend, CategoryBackend, CategoryMobile, CategoryML, CategoryData:
		return true
	}
	return false
}

// IsSupport reports whether specs of this category validate or ship the work.
func (c Category) IsSupport() bool {
	switch c {
	case CategoryQA, CategoryDevOps, CategorySecurity, CategoryPerformance, CategoryIntegration:
		return true
	}
	return false
}

// CategoryTable maps spec names to categories.
type CategoryTable map[string]Category

// Spec names produced by the built-in catalog.
const (
	NameArchitect   = "SystemArchitect"
	NameFrontend    = "FrontendSpecialist"
	NameBackend     = "BackendSpecialist"
	NameMobile      = "MobileSpecialist"
	NameML          = "MLSpecialist"
	NameQA          = "QAAgent"
	NameDevOps      = "DevOpsAgent"
	NameSecurity    = "SecurityAgent"
	NamePerformance = "PerformanceAgent"
	NameData        = "DataSpecialist"
	NameIntegration = "IntegrationAgent"
	NameFullStack   = "FullStackDeveloper"
)

// DefaultCategories returns a fresh copy of the built-in table.
func DefaultCategories() CategoryTable {
	return CategoryTable{
		NameArchitect:   CategoryArchitecture,
		NameFrontend:    CategoryFrontend,
		NameBackend:     CategoryBackend,
		NameMobile:      CategoryMobile,
		NameML:          CategoryML,
		NameQA:          CategoryQA,
		NameDevOps:      CategoryDevOps,
		NameSecurity:    CategorySecurity,
		NamePerformance: CategoryPerformance,
		NameData:        CategoryData,
		NameIntegration: CategoryIntegration,
		NameFullStack:   CategoryGeneralist,
	}
}

// Classify returns the category for name; unknown names are generalists.
func (t CategoryTable) Classify(name string) Category {
	if c, ok := t[name]; ok {
		return c
	}
	return CategoryGeneralist
}

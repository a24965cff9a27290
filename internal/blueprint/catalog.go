package blueprint

// Built-in role templates. Priorities here are base values; the scheduler
// re-derives them from categories.

var (
	coreTools     = []string{"Read", "Write", "Edit", "MultiEdit", "Glob", "Grep"}
	shellTools    = append(append([]string{}, coreTools...), "Bash", "TodoWrite")
	researchTools = append(append([]string{}, coreTools...), "WebFetch", "TodoWrite")
)

func architectSpec() AgentSpec {
	return AgentSpec{
		Name:        NameArchitect,
		Role:        "System Architecture Specialist",
		Description: "Designs overall system architecture, defines technical standards, and keeps components consistent",
		ExpertiseAreas: []string{
			"System Design", "Architecture Patterns", "Scalability", "Technical Leadership",
		},
		Responsibilities: []string{
			"Design overall system architecture",
			"Define technical standards and conventions",
			"Ensure architectural consistency",
			"Make technology stack decisions",
			"Guide other agents on architectural decisions",
		},
		Tools:          mustCapabilities(append(append([]string{}, coreTools...), "TodoWrite")...),
		ExpertiseLevel: LevelArchitect,
		Priority:       1,
		QualityStandards: []string{
			"Architectural Documentation",
			"Design Pattern Consistency",
			"Scalability Planning",
			"Technology Stack Optimization",
		},
		SpecializationFocus: "System Architecture & Technical Leadership",
	}
}

func frontendSpec() AgentSpec {
	return AgentSpec{
		Name:           NameFrontend,
		Role:           "Frontend Development Expert",
		Description:    "Builds user interfaces, client-side state and frontend performance",
		ExpertiseAreas: []string{"React", "TypeScript", "CSS", "Performance Optimization", "Accessibility"},
		Responsibilities: []string{
			"Implement user interface components",
			"Optimize frontend performance",
			"Ensure accessibility compliance",
			"Handle state management",
			"Implement responsive design",
		},
		Tools:               mustCapabilities(researchTools...),
		ExpertiseLevel:      LevelExpert,
		Priority:            2,
		SpecializationFocus: "Modern Frontend Development",
	}
}

func backendSpec() AgentSpec {
	return AgentSpec{
		Name:           NameBackend,
		Role:           "Backend Development Specialist",
		Description:    "Owns server-side logic, API design and persistence",
		ExpertiseAreas: []string{"API Design", "Database Design", "Server Architecture", "Authentication", "Performance"},
		Responsibilities: []string{
			"Design and implement APIs",
			"Set up database schemas",
			"Implement authentication systems",
			"Optimize backend performance",
			"Handle server-side logic",
		},
		Tools:               mustCapabilities(shellTools...),
		ExpertiseLevel:      LevelExpert,
		Priority:            2,
		SpecializationFocus: "Backend Systems & APIs",
	}
}

func mobileSpec() AgentSpec {
	return AgentSpec{
		Name:           NameMobile,
		Role:           "Mobile Application Specialist",
		Description:    "Develops mobile app features and platform-specific integrations",
		ExpertiseAreas: []string{"React Native", "Flutter", "Mobile UI/UX", "Performance", "App Store Deployment"},
		Responsibilities: []string{
			"Develop mobile application features",
			"Optimize for mobile performance",
			"Implement platform-specific functionality",
			"Handle mobile-specific concerns",
			"Prepare for app store deployment",
		},
		Tools:               mustCapabilities(shellTools...),
		ExpertiseLevel:      LevelExpert,
		Priority:            2,
		SpecializationFocus: "Mobile Development",
	}
}

func mlSpec() AgentSpec {
	return AgentSpec{
		Name:           NameML,
		Role:           "Machine Learning Specialist",
		Description:    "Builds model training, evaluation and serving pipelines",
		ExpertiseAreas: []string{"Machine Learning", "Data Processing", "Model Training", "MLOps", "AI Ethics"},
		Responsibilities: []string{
			"Design ML pipelines",
			"Implement data processing workflows",
			"Train and validate models",
			"Set up model deployment",
			"Monitor model performance",
		},
		Tools:               mustCapabilities(append(append([]string{}, coreTools...), "Bash", "WebFetch", "TodoWrite")...),
		ExpertiseLevel:      LevelExpert,
		Priority:            2,
		SpecializationFocus: "Machine Learning & AI",
	}
}

func qaSpec() AgentSpec {
	return AgentSpec{
		Name:           NameQA,
		Role:           "Quality Assurance Specialist",
		Description:    "Owns the testing strategy, automated tests and quality standards",
		ExpertiseAreas: []string{"Testing Strategies", "Code Quality", "Automation", "Performance Testing", "Security Testing"},
		Responsibilities: []string{
			"Design comprehensive testing strategies",
			"Implement automated tests",
			"Conduct code quality reviews",
			"Set up testing infrastructure",
			"Define quality metrics and standards",
		},
		Tools:          mustCapabilities(shellTools...),
		ExpertiseLevel: LevelExpert,
		Priority:       3,
		QualityStandards: []string{
			"Test Coverage Standards",
			"Code Quality Metrics",
			"Automated Testing Pipeline",
			"Performance Testing Strategy",
		},
		SpecializationFocus: "Quality Assurance & Testing",
	}
}

func devopsSpec() AgentSpec {
	return AgentSpec{
		Name:           NameDevOps,
		Role:           "DevOps & Infrastructure Specialist",
		Description:    "Automates builds and deployments and sets up monitoring",
		ExpertiseAreas: []string{"CI/CD", "Container Orchestration", "Cloud Infrastructure", "Monitoring", "Security"},
		Responsibilities: []string{
			"Set up CI/CD pipelines",
			"Configure deployment infrastructure",
			"Implement monitoring and logging",
			"Ensure security best practices",
			"Optimize operational workflows",
		},
		Tools:               mustCapabilities(shellTools...),
		ExpertiseLevel:      LevelExpert,
		Priority:            4,
		SpecializationFocus: "DevOps & Infrastructure",
	}
}

func securitySpec() AgentSpec {
	return AgentSpec{
		Name:           NameSecurity,
		Role:           "Security Specialist",
		Description:    "Hardens the application and reviews it for vulnerabilities",
		ExpertiseAreas: []string{"Application Security", "Authentication", "Encryption", "Compliance", "Threat Modeling"},
		Responsibilities: []string{
			"Implement security measures",
			"Conduct security assessments",
			"Ensure compliance requirements",
			"Design authentication systems",
			"Review code for security vulnerabilities",
		},
		Tools:               mustCapabilities(researchTools...),
		ExpertiseLevel:      LevelSpecialist,
		Priority:            3,
		SpecializationFocus: "Application Security",
	}
}

func performanceSpec() AgentSpec {
	return AgentSpec{
		Name:           NamePerformance,
		Role:           "Performance Optimization Specialist",
		Description:    "Profiles the system and removes bottlenecks",
		ExpertiseAreas: []string{"Performance Optimization", "Scalability", "Caching", "Load Testing", "Profiling"},
		Responsibilities: []string{
			"Optimize application performance",
			"Implement caching strategies",
			"Conduct performance testing",
			"Profile and identify bottlenecks",
			"Design scalability improvements",
		},
		Tools:               mustCapabilities(shellTools...),
		ExpertiseLevel:      LevelSpecialist,
		Priority:            3,
		SpecializationFocus: "Performance & Scalability",
	}
}

func dataSpec() AgentSpec {
	return AgentSpec{
		Name:           NameData,
		Role:           "Data Engineering Specialist",
		Description:    "Designs data architecture, pipelines and analytics storage",
		ExpertiseAreas: []string{"Data Architecture", "ETL Pipelines", "Database Optimization", "Data Quality", "Analytics"},
		Responsibilities: []string{
			"Design data architecture",
			"Implement data pipelines",
			"Optimize database performance",
			"Ensure data quality",
			"Set up analytics infrastructure",
		},
		Tools:               mustCapabilities(shellTools...),
		ExpertiseLevel:      LevelExpert,
		Priority:            2,
		SpecializationFocus: "Data Engineering & Analytics",
	}
}

func integrationSpec() AgentSpec {
	return AgentSpec{
		Name:           NameIntegration,
		Role:           "Integration & API Specialist",
		Description:    "Connects the system to third-party services and message flows",
		ExpertiseAreas: []string{"API Integration", "Microservices", "Event-Driven Architecture", "Message Queues", "Webhooks"},
		Responsibilities: []string{
			"Design integration architecture",
			"Implement API integrations",
			"Set up message queuing systems",
			"Handle webhook implementations",
			"Ensure integration reliability",
		},
		Tools:               mustCapabilities(researchTools...),
		ExpertiseLevel:      LevelExpert,
		Priority:            3,
		SpecializationFocus: "System Integration",
	}
}

func fullStackSpec() AgentSpec {
	return AgentSpec{
		Name:           NameFullStack,
		Role:           "Full-Stack Development Expert",
		Description:    "Handles frontend and backend work end to end",
		ExpertiseAreas: []string{"Frontend Development", "Backend Development", "Database Design", "API Development", "Testing"},
		Responsibilities: []string{
			"Implement full-stack features",
			"Handle both frontend and backend tasks",
			"Design database schemas",
			"Create and consume APIs",
			"Ensure end-to-end functionality",
		},
		Tools:               mustCapabilities(append(append([]string{}, coreTools...), "Bash", "WebFetch", "TodoWrite")...),
		ExpertiseLevel:      LevelExpert,
		Priority:            1,
		SpecializationFocus: "Full-Stack Development",
	}
}

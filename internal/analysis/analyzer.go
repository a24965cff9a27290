package analysis

import (
	"math"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/metaforge/internal/log"
)

// rule is a named pattern. Tables of rules are evaluated in order so the
// resulting ordered sets are deterministic.
type rule struct {
	name string
	re   *regexp.Regexp
}

// words compiles a case-insensitive alternation anchored on word boundaries.
// Alternatives may carry regex syntax such as `next\.?js` or `real.time`.
func words(alts ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

var domainRules = []rule{
	{DomainFrontend, words(`frontend`, `front-end`, `ui`, `user interface`, `web interface`, `dashboard`, `admin panel`,
		`react`, `vue`, `angular`, `svelte`, `next\.?js`, `nuxt`, `gatsby`, `remix`,
		`responsive`, `mobile.first`, `accessibility`, `ux`, `user experience`)},
	{DomainBackend, words(`backend`, `back-end`, `api`, `rest`, `graphql`, `server`, `microservices?`,
		`node\.?js`, `express`, `fastapi`, `django`, `flask`, `spring`, `laravel`,
		`database`, `sql`, `nosql`, `mongodb`, `postgresql`, `mysql`, `redis`)},
	{DomainMobile, words(`mobile`, `android`, `ios`, `react.native`, `flutter`, `swift`, `kotlin`,
		`app store`, `play store`, `cross.platform`, `native`, `hybrid`)},
	{DomainML, words(`machine learning`, `deep learning`, `ai`, `artificial intelligence`, `neural network`,
		`pytorch`, `tensorflow`, `scikit`, `pandas`, `numpy`, `data science`,
		`nlp`, `computer vision`, `recommendations?`, `prediction`, `classification`)},
	{DomainDevOps, words(`devops`, `infrastructure`, `deployment`, `ci/cd`, `automation`,
		`docker`, `kubernetes`, `aws`, `azure`, `gcp`, `terraform`, `ansible`)},
	{DomainDataEngineering, words(`data pipeline`, `etl`, `data warehouse`, `analytics`, `big data`,
		`spark`, `airflow`, `kafka`, `elasticsearch`, `bigquery`)},
	{DomainSecurity, words(`security`, `authentication`, `authorization`, `encryption`, `oauth`,
		`penetration testing`, `vulnerability`, `compliance`, `gdpr`, `hipaa`)},
	{DomainBlockchain, words(`blockchain`, `crypto`, `web3`, `ethereum`, `bitcoin`, `solidity`, `smart contract`)},
	{DomainGaming, words(`game`, `gaming`, `unity`, `unreal`, `godot`, `3d`, `virtual reality`, `ar`)},
	{DomainIoT, words(`iot`, `internet of things`, `embedded`, `sensors?`, `arduino`, `raspberry pi`)},
}

var technologyRules = []rule{
	{"python", words(`python`, `django`, `flask`, `fastapi`, `pandas`, `numpy`)},
	{"javascript", words(`javascript`, `js`, `node\.?js`, `npm`, `yarn`)},
	{"typescript", words(`typescript`, `ts`)},
	{"react", words(`react`, `jsx`, `next\.?js`, `gatsby`, `remix`)},
	{"vue", words(`vue`, `vue\.?js`, `nuxt`)},
	{"angular", words(`angular`)},
	{"docker", words(`docker`, `containers?`, `containerized`)},
	{"kubernetes", words(`kubernetes`, `k8s`, `helm`)},
	{"aws", words(`aws`, `amazon web services`, `ec2`, `s3`, `lambda`)},
	{"postgresql", words(`postgresql`, `postgres`)},
	{"mongodb", words(`mongodb`, `mongo`, `nosql`)},
	{"redis", words(`redis`, `cache`, `caching`)},
	{"pytorch", words(`pytorch`, `torch`)},
	{"tensorflow", words(`tensorflow`)},
	{"golang", words(`go`, `golang`)},
	{"rust", words(`rust`, `cargo`)},
	{"java", words(`java`, `spring`, `maven`, `gradle`)},
	{"cpp", regexp.MustCompile(`(?i)c\+\+|\bcpp\b|\bcmake\b`)},
}

var highComplexityPatterns = []*regexp.Regexp{
	words(`enterprise`, `scalable`, `distributed`, `microservices?`, `real.time`),
	words(`machine learning`, `ai`, `blockchain`, `advanced`, `complex`),
	words(`high.performance`, `optimization`, `concurrent`, `parallel`),
	words(`security`, `compliance`, `audit`, `encryption`, `authentication`),
	words(`integrations?`, `api`, `third.party`, `external`, `webhooks?`),
	words(`analytics`, `dashboard`, `reporting`, `visualization`, `charts`),
}

var moderateComplexityPatterns = []*regexp.Regexp{
	words(`database`, `sql`, `api`, `rest`, `authentication`, `user management`),
	words(`responsive`, `mobile`, `cross.platform`, `deployment`, `hosting`),
	words(`testing`, `validation`, `error handling`, `logging`, `monitoring`),
}

var projectTypeRules = []rule{
	{"web_application", words(`web app`, `website`, `web application`, `dashboard`, `admin panel`,
		`frontend`, `backend`, `fullstack`, `full.stack`)},
	{"mobile_application", words(`mobile app`, `android app`, `ios app`, `mobile application`)},
	{"api_service", words(`api`, `rest api`, `graphql`, `microservices?`, `web service`, `backend service`)},
	{"desktop_application", words(`desktop app`, `desktop application`, `gui`, `native application`)},
	{"cli_tool", words(`cli`, `command line`, `terminal`, `script`, `automation tool`)},
	{"data_pipeline", words(`data pipeline`, `etl`, `data processing`, `analytics pipeline`)},
	{"ml_model", words(`machine learning model`, `ml model`, `prediction model`, `ai model`)},
	{"library_framework", words(`library`, `framework`, `package`, `sdk`)},
	{"game", words(`game`, `gaming application`, `video game`)},
	{"blockchain_dapp", words(`dapp`, `decentralized app`, `smart contract`, `blockchain app`)},
}

var challengeRules = []rule{
	{"Performance & Scalability", words(`high.traffic`, `scalable`, `performance`, `optimization`, `concurrent`, `parallel`,
		`real.time`, `streaming`, `large.scale`, `big data`)},
	{"Security & Compliance", words(`security`, `authentication`, `authorization`, `encryption`, `compliance`,
		`gdpr`, `hipaa`, `pci`, `audit`, `vulnerability`)},
	{"Integration Complexity", words(`integrations?`, `third.party`, `api`, `external`, `webhooks?`, `microservices?`,
		`legacy`, `existing system`, `migration`)},
	{"Data Management", words(`database`, `data consistency`, `transactions?`, `backup`, `sync`,
		`data migration`, `data quality`, `data validation`)},
	{"User Experience", words(`responsive`, `mobile.first`, `accessibility`, `ux`, `user experience`,
		`cross.browser`, `cross.platform`, `internationalization`)},
	{"Deployment & Operations", words(`deployment`, `hosting`, `devops`, `monitoring`, `logging`, `error handling`,
		`ci/cd`, `automation`, `infrastructure`)},
}

var qualityRules = []rule{
	{"Performance Testing", words(`performance`, `speed`, `optimization`, `load`, `stress`)},
	{"Security Testing", words(`security`, `authentication`, `encryption`, `vulnerability`)},
	{"Accessibility Compliance", words(`accessibility`, `a11y`, `wcag`, `disabled`, `impaired`)},
	{"Cross-Platform Testing", words(`cross.platform`, `multi.platform`, `compatibility`)},
	{"Usability Testing", words(`usability`, `user experience`, `ux`, `user testing`)},
	{"Integration Testing", words(`integrations?`, `api`, `third.party`, `external`)},
	{"Scalability Testing", words(`scalable`, `scalability`, `high.traffic`, `concurrent`)},
	{"Compliance Validation", words(`compliance`, `gdpr`, `hipaa`, `regulations?`, `audit`)},
}

var securityRules = []rule{
	{"Authentication & Authorization", words(`auth`, `login`, `users?`, `accounts?`, `permissions?`, `roles?`)},
	{"Data Encryption", words(`encryption`, `secure`, `privacy`, `sensitive`, `personal`)},
	{"Input Validation", words(`forms?`, `input`, `validation`, `sanitization`, `xss`)},
	{"API Security", words(`api`, `rest`, `graphql`, `endpoints?`, `rate limiting`)},
	{"Session Management", words(`sessions?`, `cookies?`, `tokens?`, `jwt`, `oauth`)},
	{"Database Security", words(`database`, `sql`, `injection`, `sanitization`)},
	{"HTTPS/TLS", words(`https`, `ssl`, `tls`, `certificates?`, `secure connection`)},
	{"Compliance Requirements", words(`gdpr`, `hipaa`, `pci`, `compliance`, `regulations?`, `audit`)},
}

var performanceRules = []rule{
	{"Response Time Optimization", words(`fast`, `quick`, `responsive`, `speed`, `performance`)},
	{"Load Handling", words(`high.traffic`, `concurrent`, `scalable`, `load`)},
	{"Memory Optimization", words(`memory`, `efficient`, `optimization`, `resources?`)},
	{"Database Optimization", words(`database`, `query`, `index`, `optimization`)},
	{"Caching Strategy", words(`cache`, `caching`, `redis`, `memcached`, `cdn`)},
	{"Asset Optimization", words(`images?`, `videos?`, `assets?`, `compression`, `minification`)},
	{"Real-time Processing", words(`real.time`, `streaming`, `live`, `instant`)},
	{"Batch Processing", words(`batch`, `bulk`, `processing`, `queues?`, `background`)},
}

var integrationRules = []rule{
	{"Third-party APIs", words(`api`, `third.party`, `external`, `integrations?`, `webhooks?`)},
	{"Payment Processing", words(`payments?`, `stripe`, `paypal`, `billing`, `checkout`)},
	{"Authentication Services", words(`oauth`, `google`, `facebook`, `github`, `sso`)},
	{"Cloud Services", words(`aws`, `azure`, `gcp`, `cloud`, `s3`, `storage`)},
	{"Database Integration", words(`database`, `sql`, `nosql`, `migrations?`, `sync`)},
	{"Email Services", words(`email`, `smtp`, `sendgrid`, `mailgun`, `notifications?`)},
	{"Analytics Integration", words(`analytics`, `tracking`, `google analytics`, `metrics`)},
	{"Search Integration", words(`search`, `elasticsearch`, `algolia`, `full.text`)},
	{"File Storage", words(`files?`, `uploads?`, `storage`, `media`, `cdn`)},
	{"Social Media", words(`social`, `twitter`, `facebook`, `instagram`, `share`)},
}

var deploymentRules = []rule{
	{"Container Deployment", words(`docker`, `containers?`, `kubernetes`, `k8s`)},
	{"Cloud Hosting", words(`cloud`, `aws`, `azure`, `gcp`, `heroku`, `vercel`, `netlify`)},
	{"CI/CD Pipeline", words(`ci/cd`, `automation`, `deployment`, `github actions`, `jenkins`)},
	{"Database Hosting", words(`database`, `sql`, `mongodb`, `hosted`, `managed`)},
	{"CDN Integration", words(`cdn`, `cloudflare`, `cloudfront`, `static assets`)},
	{"Load Balancing", words(`load balancer`, `high availability`, `redundancy`)},
	{"Monitoring & Logging", words(`monitoring`, `logging`, `metrics`, `alerts`, `observability`)},
	{"Backup & Recovery", words(`backups?`, `recovery`, `disaster`, `redundancy`)},
	{"SSL/TLS Certificates", words(`ssl`, `tls`, `https`, `certificates?`, `security`)},
	{"Domain & DNS", words(`domain`, `dns`, `subdomain`, `custom domain`)},
}

// Analyzer classifies free-text project ideas with keyword tables.
// It holds no state besides its logger and is safe for concurrent use.
type Analyzer struct {
	logger *log.Logger
}

// NewAnalyzer creates an analyzer. A nil logger uses the default logger.
func NewAnalyzer(logger *log.Logger) *Analyzer {
	return &Analyzer{logger: log.OrDefault(logger).WithComponent("analysis")}
}

// Analyze turns idea text into a ProjectAnalysis. It never fails: a blank idea,
// or one that names no domain and no technology, yields the generic fallback
// analysis marked Degraded.
func (a *Analyzer) Analyze(idea string) ProjectAnalysis {
	text := strings.TrimSpace(idea)
	if text == "" {
		a.logger.Warn("idea is empty, using fallback analysis")
		return Fallback(idea)
	}

	wordCount := len(strings.Fields(text))
	domains := matchAll(domainRules, text)
	technologies := matchAll(technologyRules, text)
	if len(domains) == 0 && len(technologies) == 0 {
		a.logger.Warn("idea matched no domain or technology, using fallback analysis", "words", wordCount)
		return Fallback(idea)
	}
	complexity := assessComplexity(text, wordCount, domains, technologies)
	projectType := classifyProjectType(text, domains)

	result := ProjectAnalysis{
		Domains:                 domains,
		Technologies:            technologies,
		Complexity:              complexity,
		ProjectType:             projectType,
		EstimatedScope:          EstimateScope(complexity, wordCount, len(domains)),
		TechnicalChallenges:     identifyChallenges(text, domains),
		QualityRequirements:     qualityRequirements(text, complexity),
		SecurityRequirements:    securityRequirements(text, domains, projectType),
		PerformanceRequirements: performanceRequirements(text, complexity),
		IntegrationNeeds:        matchAll(integrationRules, text),
		DeploymentNeeds:         deploymentNeeds(text, complexity),
		Confidence:              confidence(domains, technologies, wordCount),
		WordCount:               wordCount,
	}

	a.logger.Info("idea analyzed",
		"domains", len(result.Domains),
		"technologies", len(result.Technologies),
		"complexity", string(result.Complexity),
		"project_type", result.ProjectType,
		"confidence", result.Confidence,
	)
	return result
}

// Fallback returns the low-confidence generic analysis.
func Fallback(idea string) ProjectAnalysis {
	return ProjectAnalysis{
		Domains:                 []string{DomainGeneral},
		Technologies:            []string{"general"},
		Complexity:              ComplexityModerate,
		ProjectType:             "general_application",
		EstimatedScope:          ScopeMedium,
		TechnicalChallenges:     []string{"Implementation", "Testing", "Deployment"},
		QualityRequirements:     []string{"Code Quality", "Testing Coverage"},
		DeploymentNeeds:         []string{"Basic Hosting", "CI/CD Pipeline"},
		SecurityRequirements:    []string{"Input Validation", "Authentication"},
		PerformanceRequirements: []string{"Response Time Optimization"},
		IntegrationNeeds:        []string{"Basic APIs"},
		Confidence:              0.3,
		WordCount:               len(strings.Fields(idea)),
		Degraded:                true,
	}
}

// EstimateScope scores complexity rank, description length and domain
// breadth: >= 8 is large, >= 5 medium, otherwise small.
func EstimateScope(c Complexity, wordCount, domainCount int) Scope {
	score := c.Rank()
	switch {
	case wordCount > 100:
		score += 3
	case wordCount > 50:
		score += 2
	case wordCount > 25:
		score++
	}
	score += min(domainCount, 3)

	switch {
	case score >= 8:
		return ScopeLarge
	case score >= 5:
		return ScopeMedium
	default:
		return ScopeSmall
	}
}

func matchAll(rules []rule, text string) []string {
	out := []string{}
	for _, r := range rules {
		if r.re.MatchString(text) {
			out = append(out, r.name)
		}
	}
	return out
}

func assessComplexity(text string, wordCount int, domains, technologies []string) Complexity {
	score := 0
	switch {
	case wordCount > 50:
		score += 2
	case wordCount > 25:
		score++
	}
	score += len(domains) + len(technologies)

	for _, re := range highComplexityPatterns {
		if re.MatchString(text) {
			score += 2
		}
	}
	for _, re := range moderateComplexityPatterns {
		if re.MatchString(text) {
			score++
		}
	}

	switch {
	case score >= 15:
		return ComplexityEnterprise
	case score >= 10:
		return ComplexityComplex
	case score >= 5:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

func classifyProjectType(text string, domains []string) string {
	for _, r := range projectTypeRules {
		if r.re.MatchString(text) {
			return r.name
		}
	}

	has := func(d string) bool { return contains(domains, d) }
	switch {
	case has(DomainMobile):
		return "mobile_application"
	case has(DomainML):
		return "ml_model"
	case has(DomainBackend) && !has(DomainFrontend):
		return "api_service"
	case has(DomainFrontend):
		return "web_application"
	}
	return "general_application"
}

func identifyChallenges(text string, domains []string) []string {
	out := matchAll(challengeRules, text)
	if contains(domains, DomainML) {
		out = appendUnique(out, "Model Training & Validation", "Data Quality & Bias", "Model Deployment")
	}
	if contains(domains, DomainBlockchain) {
		out = appendUnique(out, "Smart Contract Security", "Gas Optimization", "Decentralization")
	}
	if len(domains) > 3 {
		out = appendUnique(out, "Multi-Domain Integration")
	}
	return out
}

func qualityRequirements(text string, c Complexity) []string {
	out := appendUnique([]string{"Code Quality", "Testing Coverage"}, matchAll(qualityRules, text)...)
	if c.IsHigh() {
		out = appendUnique(out, "Architecture Review", "Performance Benchmarking", "Security Audit", "Documentation Standards")
	}
	return out
}

func securityRequirements(text string, domains []string, projectType string) []string {
	out := matchAll(securityRules, text)
	if contains(domains, DomainBackend) || strings.Contains(projectType, "api_service") {
		out = appendUnique(out, "API Rate Limiting", "Request Validation", "CORS Configuration")
	}
	if contains(domains, DomainFrontend) {
		out = appendUnique(out, "XSS Protection", "Content Security Policy")
	}
	if contains(domains, DomainML) {
		out = appendUnique(out, "Data Privacy Protection", "Model Security")
	}
	if contains(domains, DomainBlockchain) {
		out = appendUnique(out, "Smart Contract Auditing", "Private Key Management")
	}
	return out
}

func performanceRequirements(text string, c Complexity) []string {
	out := matchAll(performanceRules, text)
	if c.IsHigh() {
		out = appendUnique(out, "Performance Monitoring", "Scalability Planning", "Resource Optimization")
	}
	return out
}

func deploymentNeeds(text string, c Complexity) []string {
	out := matchAll(deploymentRules, text)
	if c.IsHigh() {
		out = appendUnique(out, "Infrastructure as Code", "Environment Management", "Security Hardening", "Performance Monitoring")
	}
	return out
}

func confidence(domains, technologies []string, wordCount int) float64 {
	score := 0.0
	switch {
	case wordCount > 50:
		score += 0.3
	case wordCount > 20:
		score += 0.2
	case wordCount > 10:
		score += 0.1
	}
	score += math.Min(float64(len(domains))*0.15, 0.4)
	score += math.Min(float64(len(technologies))*0.1, 0.3)
	// Round to two decimals so the value is stable across platforms.
	return math.Min(math.Round(score*100)/100, 1.0)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		if !contains(list, it) {
			list = append(list, it)
		}
	}
	return list
}

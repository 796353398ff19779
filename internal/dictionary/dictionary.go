// Package dictionary ships the versioned frameworks/tools/domains lookup
// tables the skills extractor matches repo topics, names, and descriptions
// against. Per the REDESIGN FLAGS note in spec.md §9, this data is loaded
// once at startup (here: it is a Go literal, so "loading" is simply
// referencing the package variable) and passed as immutable data into the
// pure extractors — it is never read from disk at call time.
package dictionary

// Version tags the dictionary contents. Bump it whenever the tables below
// change, since changes here change derived IntelligenceRecord output.
const Version = "2024.1"

// Entry is one framework or tool the skills extractor can detect.
type Entry struct {
	// Name is the canonical display name (e.g. "React").
	Name string
	// Slugs are topic/name matches, lowercase (e.g. "react", "reactjs").
	Slugs []string
	// Domain is the coarse category this entry maps into (e.g.
	// "Frontend"). Empty means the entry contributes no domain.
	Domain string
}

// Frameworks is the versioned frameworks dictionary.
var Frameworks = []Entry{
	{Name: "React", Slugs: []string{"react", "reactjs"}, Domain: "Frontend"},
	{Name: "Vue", Slugs: []string{"vue", "vuejs"}, Domain: "Frontend"},
	{Name: "Angular", Slugs: []string{"angular", "angularjs"}, Domain: "Frontend"},
	{Name: "Svelte", Slugs: []string{"svelte", "sveltekit"}, Domain: "Frontend"},
	{Name: "Next.js", Slugs: []string{"nextjs", "next-js"}, Domain: "Frontend"},
	{Name: "Django", Slugs: []string{"django"}, Domain: "Backend"},
	{Name: "Flask", Slugs: []string{"flask"}, Domain: "Backend"},
	{Name: "FastAPI", Slugs: []string{"fastapi"}, Domain: "Backend"},
	{Name: "Rails", Slugs: []string{"rails", "ruby-on-rails"}, Domain: "Backend"},
	{Name: "Spring", Slugs: []string{"spring", "spring-boot", "springboot"}, Domain: "Backend"},
	{Name: "Express", Slugs: []string{"express", "expressjs"}, Domain: "Backend"},
	{Name: "Gin", Slugs: []string{"gin", "gin-gonic"}, Domain: "Backend"},
	{Name: "Laravel", Slugs: []string{"laravel"}, Domain: "Backend"},
	{Name: "PyTorch", Slugs: []string{"pytorch"}, Domain: "ML Infra"},
	{Name: "TensorFlow", Slugs: []string{"tensorflow"}, Domain: "ML Infra"},
	{Name: "scikit-learn", Slugs: []string{"scikit-learn", "sklearn"}, Domain: "ML Infra"},
	{Name: "Hugging Face Transformers", Slugs: []string{"huggingface", "transformers"}, Domain: "ML Infra"},
	{Name: "Ethers.js", Slugs: []string{"ethersjs", "ethers-js"}, Domain: "DeFi"},
	{Name: "Hardhat", Slugs: []string{"hardhat"}, Domain: "DeFi"},
	{Name: "Foundry", Slugs: []string{"foundry", "foundry-rs"}, Domain: "DeFi"},
	{Name: "Solidity", Slugs: []string{"solidity"}, Domain: "DeFi"},
	{Name: "Arduino", Slugs: []string{"arduino"}, Domain: "Embedded"},
	{Name: "PlatformIO", Slugs: []string{"platformio"}, Domain: "Embedded"},
	{Name: "FreeRTOS", Slugs: []string{"freertos"}, Domain: "Embedded"},
	{Name: "Zephyr", Slugs: []string{"zephyr", "zephyr-rtos"}, Domain: "Embedded"},
}

// Tools is the versioned build/CI/container/infra tools dictionary.
var Tools = []Entry{
	{Name: "Docker", Slugs: []string{"docker", "dockerfile"}, Domain: "Infra"},
	{Name: "Kubernetes", Slugs: []string{"kubernetes", "k8s"}, Domain: "Infra"},
	{Name: "Terraform", Slugs: []string{"terraform"}, Domain: "Infra"},
	{Name: "Pulumi", Slugs: []string{"pulumi"}, Domain: "Infra"},
	{Name: "Ansible", Slugs: []string{"ansible"}, Domain: "Infra"},
	{Name: "GitHub Actions", Slugs: []string{"github-actions", "githubactions"}, Domain: "CI/CD"},
	{Name: "CircleCI", Slugs: []string{"circleci"}, Domain: "CI/CD"},
	{Name: "Jenkins", Slugs: []string{"jenkins"}, Domain: "CI/CD"},
	{Name: "GitLab CI", Slugs: []string{"gitlab-ci"}, Domain: "CI/CD"},
	{Name: "Helm", Slugs: []string{"helm", "helm-charts"}, Domain: "Infra"},
	{Name: "Prometheus", Slugs: []string{"prometheus"}, Domain: "Observability"},
	{Name: "Grafana", Slugs: []string{"grafana"}, Domain: "Observability"},
	{Name: "OpenTelemetry", Slugs: []string{"opentelemetry", "otel"}, Domain: "Observability"},
	{Name: "Redis", Slugs: []string{"redis"}, Domain: "Data"},
	{Name: "PostgreSQL", Slugs: []string{"postgres", "postgresql"}, Domain: "Data"},
	{Name: "Kafka", Slugs: []string{"kafka"}, Domain: "Data"},
}

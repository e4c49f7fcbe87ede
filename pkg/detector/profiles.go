package detector

// FrameworkProfile describes the static detection signals for one framework.
// Profiles are loaded once per process and never mutated.
type FrameworkProfile struct {
	Name            string
	MarkerFiles     []string
	Dependencies    []string
	DevDependencies []string
	ConfigFiles     []string
	BuildScripts    []string
	StartScripts    []string

	// Weight is the relative prior confidence in (0, 1]. It multiplies the
	// raw signal score before frameworks are compared.
	Weight float64
}

// profiles is the fixed, ordered profile set. The slice order is the
// tie-breaking rule: when two frameworks reach the same weighted score, the
// one declared first wins, so detection stays stable across runs.
var profiles = []FrameworkProfile{
	{
		Name:            FrameworkAngular,
		MarkerFiles:     []string{"angular.json", "src/main.ts", "src/app/app.module.ts"},
		Dependencies:    []string{"@angular/core", "@angular/cli", "@angular/common"},
		DevDependencies: []string{"@angular/cli", "@angular-devkit/build-angular"},
		ConfigFiles:     []string{"angular.json", "tsconfig.json", "tsconfig.app.json"},
		BuildScripts:    []string{"build:prod", "build", "ng build"},
		StartScripts:    []string{"start", "serve", "ng serve"},
		Weight:          1.0,
	},
	{
		Name:            FrameworkReact,
		MarkerFiles:     []string{"src/App.js", "src/App.tsx", "public/index.html", "src/index.js"},
		Dependencies:    []string{"react", "react-dom"},
		DevDependencies: []string{"react-scripts", "create-react-app"},
		ConfigFiles:     []string{"package.json"},
		BuildScripts:    []string{"build", "react-scripts build"},
		StartScripts:    []string{"start", "react-scripts start"},
		Weight:          0.9,
	},
	{
		Name:            FrameworkVue,
		MarkerFiles:     []string{"src/App.vue", "vue.config.js", "src/main.js"},
		Dependencies:    []string{"vue"},
		DevDependencies: []string{"@vue/cli-service", "@vue/cli"},
		ConfigFiles:     []string{"vue.config.js"},
		BuildScripts:    []string{"build", "vue-cli-service build"},
		StartScripts:    []string{"serve", "vue-cli-service serve"},
		Weight:          0.8,
	},
	{
		Name:            FrameworkNextJS,
		MarkerFiles:     []string{"next.config.js", "pages/_app.js", "pages/index.js"},
		Dependencies:    []string{"next", "react"},
		DevDependencies: []string{"next"},
		ConfigFiles:     []string{"next.config.js"},
		BuildScripts:    []string{"build", "next build"},
		StartScripts:    []string{"dev", "next dev"},
		Weight:          0.9,
	},
}

// Profiles returns the ordered profile set.
func Profiles() []FrameworkProfile {
	return profiles
}

func profileFor(framework string) (FrameworkProfile, bool) {
	for _, p := range profiles {
		if p.Name == framework {
			return p, true
		}
	}
	return FrameworkProfile{}, false
}

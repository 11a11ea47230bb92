package output

import (
	"context"
	"testing"

	"github.com/dshills/gradlerec/internal/fragment"
	"github.com/dshills/gradlerec/internal/reconcile"
)

const baseScript = `android {
    namespace = "com.example"
    compileSdk = 34
    defaultConfig {
        applicationId = "com.example"
        minSdk = 21
    }
}
`

const overrideScript = `android {
    compileSdk = 35
    buildTypes {
        release {
            signingConfig = signingConfigs.getByName("debug")
        }
    }
}
`

func runSources(t *testing.T, kv ...string) *reconcile.Result {
	t.Helper()
	var sources []fragment.Source
	for i := 0; i+1 < len(kv); i += 2 {
		sources = append(sources, fragment.Source{Label: kv[i], Content: []byte(kv[i+1])})
	}
	res, err := reconcile.Run(context.Background(), sources, reconcile.Options{Version: "1.0"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return res
}

// sampleResult has one conflict on android.compileSdk and two warnings.
func sampleResult(t *testing.T) *reconcile.Result {
	t.Helper()
	return runSources(t, "base.gradle.kts", baseScript, "override.gradle.kts", overrideScript)
}

// invalidResult is missing applicationId and has a fragment that fails to parse.
func invalidResult(t *testing.T) *reconcile.Result {
	t.Helper()
	return runSources(t,
		"lib.gradle.kts", "android {\n    compileSdk = 34\n}\n",
		"broken.gradle.kts", "android {\n    compileSdk = 35\n")
}

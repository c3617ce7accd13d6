package attribution

import "runtime"

// platformName maps the Go runtime platform to the name the attribution
// service expects. Unknown platforms report the raw GOOS value rather
// than nothing.
func platformName() string {
	switch runtime.GOOS {
	case "windows":
		return "Windows"
	case "darwin":
		return "Mac"
	case "linux":
		return "Linux"
	default:
		return runtime.GOOS
	}
}

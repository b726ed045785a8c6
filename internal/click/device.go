package click

import "strings"

// ClassifyDevice derives a device category from a User-Agent string.
// It is a pure rule set: tablet signatures are checked before mobile
// ones because Android tablets carry "Android" without "Mobile".
func ClassifyDevice(userAgent string) DeviceCategory {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return DeviceUnknown
	}

	tabletSignatures := []string{"ipad", "tablet", "kindle", "silk/", "playbook"}
	for _, sig := range tabletSignatures {
		if strings.Contains(ua, sig) {
			return DeviceTablet
		}
	}
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobile") {
		return DeviceTablet
	}

	mobileSignatures := []string{"mobi", "iphone", "ipod", "android", "windows phone", "blackberry", "opera mini"}
	for _, sig := range mobileSignatures {
		if strings.Contains(ua, sig) {
			return DeviceMobile
		}
	}

	desktopSignatures := []string{"windows nt", "macintosh", "x11", "cros", "linux"}
	for _, sig := range desktopSignatures {
		if strings.Contains(ua, sig) {
			return DeviceDesktop
		}
	}

	return DeviceUnknown
}

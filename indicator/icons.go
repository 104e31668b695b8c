package indicator

import "github.com/hazyhaar/xdswitch/mode"

// IconSet maps a pixel size to an asset path.
type IconSet map[int]string

var icons = map[mode.Mode]string{
	mode.Off:     "gray",
	mode.Debug:   "green",
	mode.Profile: "purple",
}

// Icons returns the 16/48/128 px assets for m.
func Icons(m mode.Mode) IconSet {
	colour, ok := icons[m]
	if !ok {
		colour = icons[mode.Off]
	}
	return IconSet{
		16:  "icons/bug-" + colour + "-16.png",
		48:  "icons/bug-" + colour + "-48.png",
		128: "icons/bug-" + colour + "-128.png",
	}
}

// Colour returns the badge colour name for m.
func Colour(m mode.Mode) string {
	if c, ok := icons[m]; ok {
		return c
	}
	return icons[mode.Off]
}

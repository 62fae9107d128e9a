package ffmpeg

// Preset264Fast encodes h264 fast enough to keep up with live capture.
func Preset264Fast() []Option {
	return []Option{
		VideoCodec("libx264"),
		CRF(23),
		Preset("ultrafast"),
		PixelFormat("yuv420p"),
	}
}

// Preset264Quality trades speed for size. Offline exports use it.
func Preset264Quality() []Option {
	return []Option{
		VideoCodec("libx264"),
		CRF(21),
		Preset("medium"),
		PixelFormat("yuv420p"),
	}
}

// PresetAAC encodes AAC audio with the given channel count.
func PresetAAC(channels int) []Option {
	return []Option{
		AudioCodec("aac"),
		AudioBitrate("128k"),
		AudioChannels(channels),
	}
}

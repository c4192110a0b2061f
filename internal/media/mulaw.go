package media

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// EncodeMulaw converts 16-bit PCM to G.711 mu-law. dst must be at least
// len(pcm) long.
func EncodeMulaw(dst []byte, pcm []int16) {
	for i, s := range pcm {
		dst[i] = mulawSample(s)
	}
}

func mulawSample(s int16) byte {
	v := int32(s)
	sign := byte(0)
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > mulawClip {
		v = mulawClip
	}
	v += mulawBias

	exp := byte(7)
	for mask := int32(0x4000); v&mask == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mant := byte(v>>(exp+3)) & 0x0f
	return ^(sign | exp<<4 | mant)
}

package accel

const (
	radixPasses  = 4
	radixBits    = 9
	radixBuckets = 1 << radixBits
	radixMask    = radixBuckets - 1
)

// Sort split keys in ascending order of their upper 36 bits using an LSD
// radix sort with 4 passes of 9 bits. The sort is stable so keys that only
// differ in their primitive index keep their original relative order.
func radixSort(keys []splitKey) {
	n := len(keys)
	if n < 2 {
		return
	}

	// Collect histograms for all passes in a single scan.
	var hist [radixPasses][radixBuckets]int
	for _, k := range keys {
		for pass := 0; pass < radixPasses; pass++ {
			hist[pass][(k>>(keySortShift+pass*radixBits))&radixMask]++
		}
	}

	// Convert counts to bucket offsets.
	for pass := 0; pass < radixPasses; pass++ {
		sum := 0
		for bucket := 0; bucket < radixBuckets; bucket++ {
			count := hist[pass][bucket]
			hist[pass][bucket] = sum
			sum += count
		}
	}

	// Scatter back and forth; an even pass count leaves the result in keys.
	src, dst := keys, make([]splitKey, n)
	for pass := 0; pass < radixPasses; pass++ {
		shift := keySortShift + pass*radixBits
		offsets := &hist[pass]
		for _, k := range src {
			digit := (k >> shift) & radixMask
			dst[offsets[digit]] = k
			offsets[digit]++
		}
		src, dst = dst, src
	}
}

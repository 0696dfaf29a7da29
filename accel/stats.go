package accel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"
)

// Leaf sizes >= this value are accumulated in the last histogram bin.
const leafHistogramBins = 10

// Build statistics for an accelerator.
type Stats struct {
	Type       string
	Primitives int

	InnerNodes  int
	ClipNodes   int
	LeafNodes   int
	EmptyLeaves int
	MaxDepth    int

	// Leaves that exceeded the size limit because the depth limit was reached.
	DepthCappedLeaves int

	// The total number of primitive references stored in leaves/cells.
	References    int
	MinLeafSize   int
	MaxLeafSize   int
	MeanLeafSize  float64
	StdDevLeaf    float64
	MeanLeafDepth float64
	LeafHistogram [leafHistogramBins]int

	NodeBytes int
	ListBytes int
	BuildTime time.Duration

	leafSizes  []float64
	leafDepths []float64
}

func newStats(typ string, primitives int) Stats {
	return Stats{
		Type:        typ,
		Primitives:  primitives,
		MinLeafSize: -1,
	}
}

func (s *Stats) updateInner() {
	s.InnerNodes++
}

func (s *Stats) updateClip() {
	s.ClipNodes++
}

func (s *Stats) updateLeaf(depth, count int) {
	s.LeafNodes++
	if depth > s.MaxDepth {
		s.MaxDepth = depth
	}
	if count == 0 {
		s.EmptyLeaves++
		return
	}

	s.References += count
	if s.MinLeafSize == -1 || count < s.MinLeafSize {
		s.MinLeafSize = count
	}
	if count > s.MaxLeafSize {
		s.MaxLeafSize = count
	}
	bin := count
	if bin >= leafHistogramBins {
		bin = leafHistogramBins - 1
	}
	s.LeafHistogram[bin]++
	s.leafSizes = append(s.leafSizes, float64(count))
	s.leafDepths = append(s.leafDepths, float64(depth))
}

// Compute aggregate values and release per-leaf samples.
func (s *Stats) finalize(nodeWords, listEntries int, elapsed time.Duration) {
	if s.MinLeafSize == -1 {
		s.MinLeafSize = 0
	}
	switch len(s.leafSizes) {
	case 0:
	case 1:
		s.MeanLeafSize, s.MeanLeafDepth = s.leafSizes[0], s.leafDepths[0]
	default:
		s.MeanLeafSize, s.StdDevLeaf = stat.MeanStdDev(s.leafSizes, nil)
		s.MeanLeafDepth = stat.Mean(s.leafDepths, nil)
	}
	s.leafSizes, s.leafDepths = nil, nil
	s.NodeBytes = 4 * nodeWords
	s.ListBytes = 4 * listEntries
	s.BuildTime = elapsed
}

// Get the average number of leaves/cells that reference each primitive.
func (s Stats) DuplicationFactor() float64 {
	if s.Primitives == 0 {
		return 0
	}
	return float64(s.References) / float64(s.Primitives)
}

// Build a tabular representation of the statistics.
func (s Stats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", s.Type})
	table.Append([]string{"Primitives", fmt.Sprint(s.Primitives)})
	table.Append([]string{"Build time", s.BuildTime.String()})
	table.Append([]string{"Inner nodes", fmt.Sprint(s.InnerNodes)})
	if s.ClipNodes > 0 {
		table.Append([]string{"BVH2 nodes", fmt.Sprint(s.ClipNodes)})
	}
	table.Append([]string{"Leaves", fmt.Sprint(s.LeafNodes)})
	table.Append([]string{"Empty leaves", fmt.Sprint(s.EmptyLeaves)})
	table.Append([]string{"Max depth", fmt.Sprint(s.MaxDepth)})
	table.Append([]string{"Leaf size (min/max)", fmt.Sprintf("%d / %d", s.MinLeafSize, s.MaxLeafSize)})
	table.Append([]string{"Leaf size (mean ± sd)", fmt.Sprintf("%.2f ± %.2f", s.MeanLeafSize, s.StdDevLeaf)})
	table.Append([]string{"Mean leaf depth", fmt.Sprintf("%.2f", s.MeanLeafDepth)})
	table.Append([]string{"References/primitive", fmt.Sprintf("%.2f", s.DuplicationFactor())})
	if s.DepthCappedLeaves > 0 {
		table.Append([]string{"Depth capped leaves", fmt.Sprint(s.DepthCappedLeaves)})
	}
	for bin, count := range s.LeafHistogram {
		if count == 0 {
			continue
		}
		label := fmt.Sprintf("Leaves with %d prims", bin)
		if bin == leafHistogramBins-1 {
			label = fmt.Sprintf("Leaves with %d+ prims", bin)
		}
		table.Append([]string{label, fmt.Sprint(count)})
	}
	table.SetFooter([]string{"Memory", fmtSize(s.NodeBytes + s.ListBytes)})

	table.Render()
	return buf.String()
}

// Format a byte count with the appropriate byte/kb/mb unit.
func fmtSize(totalBytes int) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", totalBytes)
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", float32(totalBytes)/1e3)
	}
	return fmt.Sprintf("%5.1f mb", float32(totalBytes)/1e6)
}

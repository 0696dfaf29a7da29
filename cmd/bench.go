package cmd

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/asset/reader"
	"github.com/Vargol/PhotonPump-sub000/geometry"
	"github.com/Vargol/PhotonPump-sub000/scene"
	"github.com/Vargol/PhotonPump-sub000/tracer"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Accelerators compared by the benchmark. The first one is the reference.
var benchAccelerators = []string{"null", "kdtree", "bih", "grid"}

// Relative hit distance difference tolerated between accelerators.
const benchTolerance = 1e-4

type benchResult struct {
	accelType  string
	buildTime  time.Duration
	traceTime  time.Duration
	hits       int
	mismatches int
}

// Cast random rays through every accelerator type and verify that they all
// agree with the linear reference.
func Bench(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := acceleratorOptions(ctx)
	if err != nil {
		return err
	}

	makeScene, err := benchSceneFactory(ctx, opts)
	if err != nil {
		return err
	}

	numRays := ctx.Int("rays")
	if numRays <= 0 {
		return errors.Errorf("ray count must be positive; got %d", numRays)
	}
	rng := rand.New(rand.NewSource(ctx.Int64("seed")))

	var rays []types.Ray
	var reference []scene.Hit
	results := make([]benchResult, 0, len(benchAccelerators))
	for _, accelType := range benchAccelerators {
		sc, err := makeScene(accelType)
		if err != nil {
			return err
		}

		start := time.Now()
		if err = sc.Prepare(context.Background()); err != nil {
			return err
		}
		res := benchResult{accelType: accelType, buildTime: time.Since(start)}

		if rays == nil {
			rays = randomRays(rng, sc.Bounds(), numRays)
		}

		hits, traceTime, err := traceAll(sc, rays, ctx.Int("workers"))
		if err != nil {
			return err
		}
		res.traceTime = traceTime

		if reference == nil {
			reference = hits
		}
		for index, hit := range hits {
			if hit.Ok() {
				res.hits++
			}
			if !sameHit(reference[index], hit) {
				res.mismatches++
				logger.Debugf("%s: ray %d mismatch; expected %+v; got %+v", accelType, index, reference[index], hit)
			}
		}
		results = append(results, res)
	}

	displayBenchResults(results, numRays)

	for _, res := range results {
		if res.mismatches > 0 {
			return errors.Errorf("%s disagrees with the reference on %d of %d rays", res.accelType, res.mismatches, numRays)
		}
	}
	return nil
}

// Get a function that builds a fresh scene for an accelerator type from the
// benchmark model.
func benchSceneFactory(ctx *cli.Context, opts accel.Options) (func(string) (*scene.Scene, error), error) {
	if ctx.NArg() > 0 {
		model, err := reader.ReadModel(ctx.Args().First())
		if err != nil {
			return nil, err
		}
		return func(accelType string) (*scene.Scene, error) {
			return model.Scene(opts, accelType)
		}, nil
	}

	numSpheres := ctx.Int("spheres")
	if numSpheres <= 0 {
		return nil, errors.New("expected a model file argument or a positive --spheres count")
	}
	spheres, err := randomSpheres(rand.New(rand.NewSource(ctx.Int64("seed"))), numSpheres)
	if err != nil {
		return nil, err
	}
	return func(accelType string) (*scene.Scene, error) {
		g := geometry.New("spheres", spheres, opts)
		if err := g.SetAcceleratorType(accelType); err != nil {
			return nil, err
		}
		sc := scene.New(opts)
		if _, err := sc.AddInstance(g, mgl32.Ident4()); err != nil {
			return nil, err
		}
		return sc, nil
	}, nil
}

// Place n non-overlapping spheres with radius 0.5 on a jittered lattice with
// spacing 2.
func randomSpheres(rng *rand.Rand, n int) (*geometry.SphereList, error) {
	side := int(math32.Ceil(math32.Cbrt(float32(n))))
	centers := make([]types.Vec3, 0, n)
	radii := make([]float32, 0, n)
	for i := 0; len(centers) < n; i++ {
		x, y, z := i%side, (i/side)%side, i/(side*side)
		jitter := types.XYZ(rng.Float32()-0.5, rng.Float32()-0.5, rng.Float32()-0.5).Mul(0.9)
		centers = append(centers, types.XYZ(float32(2*x), float32(2*y), float32(2*z)).Add(jitter))
		radii = append(radii, 0.5)
	}
	return geometry.NewSphereList(centers, radii)
}

// Generate rays starting inside the padded scene bounds with uniformly
// distributed directions.
func randomRays(rng *rand.Rand, bounds types.BBox, n int) []types.Ray {
	ext := bounds.Extents()
	pad := 0.1 * math32.Max(ext.MaxComponent(), 1)
	lo := bounds.Min.Sub(types.XYZ(pad, pad, pad))
	size := ext.Add(types.XYZ(2*pad, 2*pad, 2*pad))

	rays := make([]types.Ray, n)
	for i := range rays {
		origin := types.XYZ(
			lo[0]+rng.Float32()*size[0],
			lo[1]+rng.Float32()*size[1],
			lo[2]+rng.Float32()*size[2],
		)
		z := 2*rng.Float32() - 1
		phi := 2 * math32.Pi * rng.Float32()
		sinTheta := math32.Sqrt(math32.Max(0, 1-z*z))
		dir := types.XYZ(sinTheta*math32.Cos(phi), sinTheta*math32.Sin(phi), z)
		rays[i] = types.NewRay(origin, dir)
	}
	return rays
}

// Trace all rays through the scene using a tracer pool.
func traceAll(sc *scene.Scene, rays []types.Ray, numWorkers int) ([]scene.Hit, time.Duration, error) {
	pool, err := tracer.NewPool(sc, numWorkers, tracer.PerfectScheduler())
	if err != nil {
		return nil, 0, err
	}
	defer pool.Close()

	hits := make([]scene.Hit, len(rays))
	start := time.Now()
	if err = pool.Trace(context.Background(), rays, hits); err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)

	displayTracerStats(pool.Stats())
	return hits, elapsed, nil
}

// Two hits agree if they both miss or hit the same primitive at (almost) the
// same distance. Coincident surfaces may legitimately resolve to different
// primitives so the distance alone decides.
func sameHit(exp, got scene.Hit) bool {
	if exp.Ok() != got.Ok() {
		return false
	}
	if !exp.Ok() {
		return true
	}
	return math32.Abs(exp.T-got.T) <= benchTolerance*math32.Max(1, exp.T)
}

func displayTracerStats(stats tracer.BatchStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Rays", "% of batch", "Trace time", "Rays/sec"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.Rays),
			fmt.Sprintf("%02.1f %%", stat.BatchPercent),
			stat.TraceTime.String(),
			fmt.Sprintf("%.0f", stat.RaysPerSecond()),
		})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d", stats.Rays), "", "TOTAL", stats.TraceTime.String()})

	table.Render()
	logger.Infof("tracer statistics\n%s", buf.String())
}

func displayBenchResults(results []benchResult, numRays int) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Accelerator", "Build time", "Trace time", "Rays/sec", "Hits", "Mismatches"})
	for _, res := range results {
		raysPerSec := 0.0
		if res.traceTime > 0 {
			raysPerSec = float64(numRays) / res.traceTime.Seconds()
		}
		table.Append([]string{
			res.accelType,
			res.buildTime.String(),
			res.traceTime.String(),
			fmt.Sprintf("%.0f", raysPerSec),
			fmt.Sprintf("%d", res.hits),
			fmt.Sprintf("%d", res.mismatches),
		})
	}

	table.Render()
	logger.Noticef("benchmark results for %d rays\n%s", numRays, buf.String())
}

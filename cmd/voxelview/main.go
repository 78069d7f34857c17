package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"voxelmesh/internal/config"
	"voxelmesh/internal/graphics"
	"voxelmesh/internal/input"
	"voxelmesh/internal/meshsink"
	"voxelmesh/internal/physics"
	"voxelmesh/internal/profiling"
	"voxelmesh/internal/voxel"
	"voxelmesh/internal/world"
)

func init() {
	// GLFW event handling must run on the main thread
	runtime.LockOSThread()
}

// source feeds mesh frames to the renderer once per frame.
type source interface {
	Frames() []*meshsink.MeshFrame
	Edit(eye, target mgl32.Vec3, dig bool)
	Close()
}

func main() {
	cfg := config.DefaultConfig()
	connect := flag.String("connect", "", "voxeld websocket URL, e.g. ws://localhost:8765/ws; empty runs a local world")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "terrain seed (local mode)")
	flag.IntVar(&cfg.LoadRadius, "load-radius", cfg.LoadRadius, "chunks loaded around the origin (local mode)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "generation workers (local mode)")
	fps := flag.Int("fps", 144, "frame rate cap (0 = uncapped)")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Config] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var src source
	var err error
	if *connect != "" {
		src = newRemoteSource(ctx, *connect)
	} else {
		src, err = newLocalSource(ctx, cfg)
		if err != nil {
			log.Fatalf("[Viewer] %v", err)
		}
	}
	defer src.Close()

	if err := glfw.Init(); err != nil {
		log.Fatalln("failed to init glfw:", err)
	}
	defer glfw.Terminate()

	window, err := setupWindow()
	if err != nil {
		log.Fatalf("[Viewer] window: %v", err)
	}

	camera := graphics.NewCamera(graphics.WinWidth, graphics.WinHeight)
	camera.Target = mgl32.Vec3{0, float32(cfg.BaseHeight), 0}
	renderer, err := graphics.NewRenderer(camera)
	if err != nil {
		log.Fatalf("[Viewer] renderer: %v", err)
	}
	defer renderer.Delete()
	renderer.MaxHeight = float32(cfg.BaseHeight) + float32(cfg.Amplitude)

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		gl.Viewport(0, 0, int32(width), int32(height))
		camera.SetViewport(width, height)
	})

	im := input.NewInputManager()
	im.SetCallbacks(window)

	runLoop(window, im, camera, renderer, src, &fpsLimiter{limit: *fps})
}

func setupWindow() (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(graphics.WinWidth, graphics.WinHeight, "voxelview", nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()
	// Paced by fpsLimiter instead of V-Sync
	glfw.SwapInterval(0)
	return window, nil
}

func runLoop(window *glfw.Window, im *input.InputManager, camera *graphics.Camera, renderer *graphics.Renderer, src source, limiter *fpsLimiter) {
	const (
		panSpeed   = 40.0 // voxels per second at distance 80
		orbitSpeed = 0.25 // degrees per pixel
	)
	last := time.Now()
	for !window.ShouldClose() {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		glfw.PollEvents()

		if im.JustPressed(input.ActionQuit) {
			window.SetShouldClose(true)
		}
		if im.JustPressed(input.ActionToggleWireframe) {
			renderer.Wireframe = !renderer.Wireframe
		}
		if im.JustPressed(input.ActionToggleStats) {
			drawn, culled, total := renderer.Stats()
			log.Printf("[Viewer] chunks drawn %d culled %d held %d", drawn, culled, total)
			log.Printf("[Viewer] timings: %s", profiling.TopN(6))
		}

		if im.IsActive(input.ActionOrbit) {
			dx, dy := im.CursorDelta()
			camera.Orbit(float32(dx)*orbitSpeed, float32(dy)*orbitSpeed)
		}
		if s := im.Scroll(); s != 0 {
			camera.Zoom(float32(math.Pow(0.9, s)))
		}
		if im.IsActive(input.ActionZoomIn) {
			camera.Zoom(1 - dt)
		}
		if im.IsActive(input.ActionZoomOut) {
			camera.Zoom(1 + dt)
		}

		step := panSpeed * dt * camera.Distance / 80
		if im.IsActive(input.ActionModShift) {
			step *= 3
		}
		var right, forward float32
		if im.IsActive(input.ActionPanForward) {
			forward += step
		}
		if im.IsActive(input.ActionPanBackward) {
			forward -= step
		}
		if im.IsActive(input.ActionPanRight) {
			right += step
		}
		if im.IsActive(input.ActionPanLeft) {
			right -= step
		}
		camera.Pan(right, forward)
		if im.IsActive(input.ActionRaise) {
			camera.Target[1] += step
		}
		if im.IsActive(input.ActionLower) {
			camera.Target[1] -= step
		}

		if im.JustPressed(input.ActionPlace) {
			src.Edit(camera.Position(), camera.Target, false)
		}
		if im.JustPressed(input.ActionDig) {
			src.Edit(camera.Position(), camera.Target, true)
		}

		for _, f := range src.Frames() {
			renderer.Apply(f)
		}
		renderer.Render()

		im.PostUpdate()
		window.SwapBuffers()
		limiter.Wait()
	}
}

// remoteSource receives frames from a voxeld server.
type remoteSource struct {
	cancel context.CancelFunc
	frames chan *meshsink.MeshFrame
}

func newRemoteSource(ctx context.Context, url string) *remoteSource {
	ctx, cancel := context.WithCancel(ctx)
	s := &remoteSource{cancel: cancel, frames: make(chan *meshsink.MeshFrame, 1024)}
	go func() {
		err := meshsink.Subscribe(ctx, url, func(f *meshsink.MeshFrame) {
			select {
			case s.frames <- f:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("[Viewer] subscription ended: %v", err)
		}
	}()
	return s
}

func (s *remoteSource) Frames() []*meshsink.MeshFrame {
	var out []*meshsink.MeshFrame
	for {
		select {
		case f := <-s.frames:
			out = append(out, f)
		default:
			return out
		}
	}
}

func (s *remoteSource) Edit(mgl32.Vec3, mgl32.Vec3, bool) {
	log.Printf("[Viewer] edits go through the server's /edit endpoint in remote mode")
}

func (s *remoteSource) Close() { s.cancel() }

// localSource owns a world and meshes it in process.
type localSource struct {
	world *world.World
	seq   uint64
}

func newLocalSource(ctx context.Context, cfg *config.Config) (*localSource, error) {
	gen := world.NewGenerator(cfg.Seed).WithShape(cfg.BaseHeight, cfg.Amplitude, cfg.WorldHeight)
	w := world.New(*cfg, gen)
	start := time.Now()
	chunks, err := w.LoadArea(ctx, world.ChunkCoord{}, cfg.LoadRadius)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("initial load: %w", err)
	}
	log.Printf("[Viewer] %d chunks ready in %v", len(chunks), time.Since(start).Round(time.Millisecond))
	return &localSource{world: w}, nil
}

func (s *localSource) Frames() []*meshsink.MeshFrame {
	var out []*meshsink.MeshFrame
	for _, c := range s.world.Store().AllChunks() {
		if c.TakeDirty(world.DirtyRedraw) == 0 {
			continue
		}
		s.seq++
		f := meshsink.FrameFor(c)
		f.Seq = s.seq
		out = append(out, f)
	}
	return out
}

// Edit casts a ray from eye through target and digs the first solid voxel it meets, or places
// stone against the face it entered.
func (s *localSource) Edit(eye, target mgl32.Vec3, dig bool) {
	dir := target.Sub(eye)
	hit, err := physics.Raycast(eye, dir, 0, dir.Len()*2, s.world.SolidAt)
	if err != nil {
		log.Printf("[Viewer] pick: %v", err)
		return
	}
	if !hit.Hit {
		return
	}
	pos, data := hit.AdjacentPosition, voxel.Stone
	if dig {
		pos, data = hit.HitPosition, voxel.Air
	}
	res, err := s.world.ApplyEdit(pos, data)
	if err != nil {
		log.Printf("[Viewer] edit %v: %v", pos, err)
		return
	}
	log.Printf("[Viewer] edit %v: changed %v, %d chunks touched", pos, res.Changed, len(res.Touched))
}

func (s *localSource) Close() { s.world.Close() }

package engine

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"phosphor/pkg/config"
)

const (
	glyphCellW   = 8
	glyphCellH   = 16
	atlasColumns = 16
	atlasRows    = 6 // ASCII 32..127
	firstGlyph   = 32
	lastGlyph    = 127

	// maxFeedLines bounds the content texture height; the oldest lines are
	// dropped once the feed exceeds it.
	maxFeedLines = 800

	scrollbarWidthPx = 10
)

type presentUniforms struct {
	contentTexture, warpTexture     int32
	resolution, contentHeight       int32
	scrollOffset                    int32
	warpScale, warpTile, warpMargin int32
	backgroundColor                 int32
}

// ContentRenderer owns the scrollable terminal surface: a glyph atlas, the
// offscreen buffer holding the full rasterized content, and the present pass
// that draws it to the canvas with a transform-driven scroll offset and the
// displacement warp. Scrolling never moves a native surface; only the
// scrollOffset uniform changes.
type ContentRenderer struct {
	log *zap.Logger

	static resourceLedger
	sized  resourceLedger

	glyphProg   uint32
	presentProg uint32
	solidProg   uint32

	atlasTex uint32
	warpTex  uint32
	field    *DisplacementField

	content renderTarget

	quadVAO  uint32
	quadVBO  uint32
	glyphVAO uint32
	glyphVBO uint32

	presentU   presentUniforms
	glyphAtlas int32
	glyphColor int32
	solidColor int32

	width      int
	viewportH  int
	columns    int
	lineHeight int

	lines []string
	dirty bool
}

// NewContentRenderer compiles the content programs and builds the glyph
// atlas. width and viewportH are canvas pixels.
func NewContentRenderer(log *zap.Logger, cfg config.ContentConfig, width, viewportH int) (*ContentRenderer, error) {
	c := &ContentRenderer{
		log:        log,
		width:      width,
		viewportH:  viewportH,
		columns:    cfg.Columns,
		lineHeight: cfg.LineHeight,
		dirty:      true,
	}
	if c.columns < 8 {
		c.columns = 8
	}
	if c.lineHeight < glyphCellH {
		c.lineHeight = glyphCellH
	}

	var err error
	if c.glyphProg, err = createShaderProgram(glyphVertexShaderSource, glyphFragmentShaderSource); err != nil {
		return nil, fmt.Errorf("glyph program: %w", err)
	}
	c.static.track("glyphProg", func() { gl.DeleteProgram(c.glyphProg) })

	if c.presentProg, err = createShaderProgram(quadVertexShaderSource, contentFragmentShaderSource); err != nil {
		c.Release()
		return nil, fmt.Errorf("present program: %w", err)
	}
	c.static.track("presentProg", func() { gl.DeleteProgram(c.presentProg) })

	if c.solidProg, err = createShaderProgram(solidVertexShaderSource, solidFragmentShaderSource); err != nil {
		c.Release()
		return nil, fmt.Errorf("solid program: %w", err)
	}
	c.static.track("solidProg", func() { gl.DeleteProgram(c.solidProg) })

	c.presentU = presentUniforms{
		contentTexture:  uniform(c.presentProg, "contentTexture"),
		warpTexture:     uniform(c.presentProg, "warpTexture"),
		resolution:      uniform(c.presentProg, "resolution"),
		contentHeight:   uniform(c.presentProg, "contentHeight"),
		scrollOffset:    uniform(c.presentProg, "scrollOffset"),
		warpScale:       uniform(c.presentProg, "warpScale"),
		warpTile:        uniform(c.presentProg, "warpTile"),
		warpMargin:      uniform(c.presentProg, "warpMargin"),
		backgroundColor: uniform(c.presentProg, "backgroundColor"),
	}
	c.glyphAtlas = uniform(c.glyphProg, "atlasTexture")
	c.glyphColor = uniform(c.glyphProg, "textColor")
	c.solidColor = uniform(c.solidProg, "fillColor")

	c.createGlyphAtlas()
	c.setupBuffers()
	c.allocateContentTarget()

	return c, nil
}

// createGlyphAtlas rasterizes a crude procedural glyph set into a texture.
// Legibility is approximate on purpose; the CRT treatment does the rest.
func (c *ContentRenderer) createGlyphAtlas() {
	img := image.NewRGBA(image.Rect(0, 0, atlasColumns*glyphCellW, atlasRows*glyphCellH))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{0, 0, 0, 255}}, image.Point{}, draw.Src)

	for ch := firstGlyph; ch <= lastGlyph; ch++ {
		idx := ch - firstGlyph
		x := (idx % atlasColumns) * glyphCellW
		y := (idx / atlasColumns) * glyphCellH
		drawGlyphCell(img, rune(ch), x, y)
	}

	gl.GenTextures(1, &c.atlasTex)
	gl.BindTexture(gl.TEXTURE_2D, c.atlasTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(img.Bounds().Dx()), int32(img.Bounds().Dy()),
		0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	c.static.track("atlas", func() { gl.DeleteTextures(1, &c.atlasTex) })
}

// drawGlyphCell draws one character cell. A few structural characters get
// explicit shapes; the rest use a deterministic per-character dot pattern so
// distinct characters stay distinguishable.
func drawGlyphCell(img *image.RGBA, ch rune, ox, oy int) {
	white := color.RGBA{255, 255, 255, 255}
	set := func(dx, dy int) {
		img.Set(ox+dx, oy+dy, white)
	}

	switch ch {
	case ' ':
		return
	case '.', ',':
		for dy := glyphCellH - 4; dy < glyphCellH-2; dy++ {
			set(glyphCellW/2-1, dy)
			set(glyphCellW/2, dy)
		}
	case '-':
		for dx := 1; dx < glyphCellW-1; dx++ {
			set(dx, glyphCellH/2)
		}
	case '_':
		for dx := 0; dx < glyphCellW; dx++ {
			set(dx, glyphCellH-2)
		}
	case '|':
		for dy := 1; dy < glyphCellH-1; dy++ {
			set(glyphCellW/2, dy)
		}
	case ':':
		set(glyphCellW/2, glyphCellH/3)
		set(glyphCellW/2, 2*glyphCellH/3)
	case '#':
		for dy := 2; dy < glyphCellH-2; dy++ {
			for dx := 1; dx < glyphCellW-1; dx++ {
				if dx%3 == 0 || dy%4 == 0 {
					set(dx, dy)
				}
			}
		}
	default:
		// Hash-derived dot pattern: stable per character, dense enough to
		// read as a glyph under the CRT mask.
		h := int(ch) * 2654435761
		for dy := 2; dy < glyphCellH-2; dy++ {
			for dx := 1; dx < glyphCellW-1; dx++ {
				bit := (h >> uint((dy*glyphCellW+dx)%31)) & 1
				mixed := (h ^ (dx*73 + dy*151)) % 5
				if bit == 1 && mixed < 3 {
					set(dx, dy)
				}
			}
		}
	}
}

func (c *ContentRenderer) setupBuffers() {
	vertices := []float32{
		-1.0, -1.0, 0.0, 0.0, 0.0,
		1.0, -1.0, 0.0, 1.0, 0.0,
		1.0, 1.0, 0.0, 1.0, 1.0,
		-1.0, 1.0, 0.0, 0.0, 1.0,
	}

	gl.GenVertexArrays(1, &c.quadVAO)
	gl.GenBuffers(1, &c.quadVBO)
	gl.BindVertexArray(c.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	gl.GenVertexArrays(1, &c.glyphVAO)
	gl.GenBuffers(1, &c.glyphVBO)
	gl.BindVertexArray(c.glyphVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.glyphVBO)
	gl.BufferData(gl.ARRAY_BUFFER, 4*5*4, nil, gl.STREAM_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	c.static.track("contentBuffers", func() {
		gl.DeleteVertexArrays(1, &c.quadVAO)
		gl.DeleteBuffers(1, &c.quadVBO)
		gl.DeleteVertexArrays(1, &c.glyphVAO)
		gl.DeleteBuffers(1, &c.glyphVBO)
	})
}

// ContentHeight returns the rendered content height in pixels (analogous to
// scrollHeight on the controlled region).
func (c *ContentRenderer) ContentHeight() float64 {
	h := (len(c.lines) + 1) * c.lineHeight
	if h < c.viewportH {
		h = c.viewportH
	}
	return float64(h)
}

func (c *ContentRenderer) allocateContentTarget() {
	h := int(c.ContentHeight())

	t := renderTarget{width: c.width, height: h}
	gl.GenTextures(1, &t.tex)
	gl.BindTexture(gl.TEXTURE_2D, t.tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(t.width), int32(t.height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.tex, 0)
	t.ok = gl.CheckFramebufferStatus(gl.FRAMEBUFFER) == gl.FRAMEBUFFER_COMPLETE
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	tex, fbo := t.tex, t.fbo
	c.sized.track("content", func() {
		gl.DeleteFramebuffers(1, &fbo)
		gl.DeleteTextures(1, &tex)
	})

	if !t.ok {
		c.log.Warn("content buffer incomplete", zap.Int("height", h))
	}

	c.content = t
	c.dirty = true
}

// UploadWarpField (re)uploads the displacement field texture. Also called
// when the sync policy demands a forced filter-identity invalidation.
func (c *ContentRenderer) UploadWarpField(f *DisplacementField) {
	c.field = f

	if c.warpTex == 0 {
		gl.GenTextures(1, &c.warpTex)
		c.static.track("warpTex", func() { gl.DeleteTextures(1, &c.warpTex) })
	}

	gl.BindTexture(gl.TEXTURE_2D, c.warpTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(f.Size), int32(f.Size), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(f.Pix))
}

// AppendLine adds a message line, wrapping at the column cap, and marks the
// content buffer dirty. Returns the new content height so the caller can
// update the scroll engine in the same tick.
func (c *ContentRenderer) AppendLine(s string) float64 {
	// Wrap on runes, not bytes, so multibyte input never splits mid-sequence.
	runes := []rune(s)
	for len(runes) > c.columns {
		c.lines = append(c.lines, string(runes[:c.columns]))
		runes = runes[c.columns:]
	}
	c.lines = append(c.lines, string(runes))

	if len(c.lines) > maxFeedLines {
		c.lines = c.lines[len(c.lines)-maxFeedLines:]
	}

	c.dirty = true
	return c.ContentHeight()
}

// SetFeed replaces the whole feed (e.g. after a reset). Shrinking content is
// expected; the scroll engine re-clamps when told the new height.
func (c *ContentRenderer) SetFeed(lines []string) float64 {
	c.lines = append([]string(nil), lines...)
	if len(c.lines) > maxFeedLines {
		c.lines = c.lines[len(c.lines)-maxFeedLines:]
	}
	c.dirty = true
	return c.ContentHeight()
}

// Resize adapts to a new canvas size, recreating the content buffer.
func (c *ContentRenderer) Resize(width, viewportH int) {
	if width == c.width && viewportH == c.viewportH {
		return
	}
	c.width = width
	c.viewportH = viewportH
	c.sized.releaseAll()
	c.allocateContentTarget()
}

// EnsureContent re-rasterizes the content buffer when the feed changed.
// Content height growth forces a buffer reallocation first.
func (c *ContentRenderer) EnsureContent() {
	if !c.dirty {
		return
	}
	if int(c.ContentHeight()) != c.content.height || c.width != c.content.width {
		c.sized.releaseAll()
		c.allocateContentTarget()
	}
	if !c.content.ok {
		c.dirty = false
		return
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, c.content.fbo)
	gl.Viewport(0, 0, int32(c.content.width), int32(c.content.height))
	gl.Disable(gl.BLEND)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.UseProgram(c.glyphProg)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, c.atlasTex)
	gl.Uniform1i(c.glyphAtlas, 0)
	gl.Uniform3f(c.glyphColor, 0.7, 0.85, 0.7)

	for row, line := range c.lines {
		for col, ch := range line {
			c.drawGlyph(ch, col, row)
		}
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	c.dirty = false
}

// drawGlyph streams one character quad into the content buffer, with cell
// coordinates in content space (row 0 at the top).
func (c *ContentRenderer) drawGlyph(ch rune, col, row int) {
	if ch < firstGlyph || ch > lastGlyph {
		ch = '?'
	}
	idx := int(ch) - firstGlyph

	atlasW := float32(atlasColumns * glyphCellW)
	atlasH := float32(atlasRows * glyphCellH)
	tx := float32((idx%atlasColumns)*glyphCellW) / atlasW
	ty := float32((idx/atlasColumns)*glyphCellH) / atlasH
	tw := float32(glyphCellW) / atlasW
	th := float32(glyphCellH) / atlasH

	w := float32(c.content.width)
	h := float32(c.content.height)
	x0 := float32(col*glyphCellW)/w*2 - 1
	x1 := float32((col+1)*glyphCellW)/w*2 - 1
	// Row 0 sits at texture v=0, which the present pass maps to the top.
	y0 := float32(row*c.lineHeight)/h*2 - 1
	y1 := float32(row*c.lineHeight+glyphCellH)/h*2 - 1

	vertices := []float32{
		x0, y0, 0.0, tx, ty,
		x1, y0, 0.0, tx + tw, ty,
		x1, y1, 0.0, tx + tw, ty + th,
		x0, y1, 0.0, tx, ty + th,
	}

	gl.BindVertexArray(c.glyphVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.glyphVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STREAM_DRAW)
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
	gl.BindVertexArray(0)
}

// Present draws the scrolled, warped content and the emulated scrollbar to
// the canvas. scroll and warp come from the same tick snapshot.
func (c *ContentRenderer) Present(f *frameState, warp WarpTransform, bar ScrollbarMetrics) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(f.outW), int32(f.outH))
	gl.Disable(gl.BLEND)

	gl.UseProgram(c.presentProg)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, c.content.tex)
	gl.Uniform1i(c.presentU.contentTexture, 0)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, c.warpTex)
	gl.Uniform1i(c.presentU.warpTexture, 1)

	gl.Uniform2f(c.presentU.resolution, float32(f.width), float32(f.height))
	gl.Uniform1f(c.presentU.contentHeight, float32(c.content.height))
	gl.Uniform1f(c.presentU.scrollOffset, float32(f.scroll.Offset))

	if warp.Identity || c.warpTex == 0 {
		gl.Uniform1f(c.presentU.warpScale, 0)
		gl.Uniform2f(c.presentU.warpTile, 1, 1)
		gl.Uniform1f(c.presentU.warpMargin, 0)
	} else {
		gl.Uniform1f(c.presentU.warpScale, float32(warp.Scale))
		gl.Uniform2f(c.presentU.warpTile, float32(warp.TileW), float32(warp.TileH))
		gl.Uniform1f(c.presentU.warpMargin, float32(warp.Margin))
	}
	gl.Uniform3f(c.presentU.backgroundColor, 0.02, 0.03, 0.02)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindVertexArray(c.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
	gl.BindVertexArray(0)

	c.drawScrollbar(f, bar)
}

// drawScrollbar renders the emulated track and thumb at the right edge.
func (c *ContentRenderer) drawScrollbar(f *frameState, bar ScrollbarMetrics) {
	if bar.ThumbSize >= 1 {
		return
	}

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.UseProgram(c.solidProg)

	trackX0 := 1 - float32(scrollbarWidthPx)/float32(f.width)*2

	// Track.
	gl.Uniform4f(c.solidColor, 0.1, 0.12, 0.1, 0.6)
	c.drawRect(trackX0, -1, 1, 1)

	// Thumb: ThumbStart is a fraction from the top; NDC y grows upward.
	y1 := 1 - float32(bar.ThumbStart)*2
	y0 := y1 - float32(bar.ThumbSize)*2
	gl.Uniform4f(c.solidColor, 0.45, 0.6, 0.45, 0.85)
	c.drawRect(trackX0, y0, 1, y1)
}

func (c *ContentRenderer) drawRect(x0, y0, x1, y1 float32) {
	vertices := []float32{
		x0, y0, 0.0, 0, 0,
		x1, y0, 0.0, 1, 0,
		x1, y1, 0.0, 1, 1,
		x0, y1, 0.0, 0, 1,
	}
	gl.BindVertexArray(c.glyphVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.glyphVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STREAM_DRAW)
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
	gl.BindVertexArray(0)
}

// Release frees every GPU resource the content renderer owns.
func (c *ContentRenderer) Release() {
	c.sized.releaseAll()
	c.static.releaseAll()
}

// ResourceCount reports currently tracked allocations, for leak checks.
func (c *ContentRenderer) ResourceCount() int {
	return c.static.count() + c.sized.count()
}

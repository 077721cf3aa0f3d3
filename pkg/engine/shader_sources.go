package engine

// Shader sources for the CRT overlay pipeline and the content presenter.

// Shared vertex shader: a full-screen quad with texture coordinates.
const quadVertexShaderSource = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec2 aTexCoord;

out vec2 TexCoord;

void main() {
    gl_Position = vec4(aPos, 1.0);
    TexCoord = aTexCoord;
}
`

// Mask pass: draws the procedural shadow mask, scanlines, vignette and
// chromatic convergence into an offscreen RGBA buffer. Alpha carries the
// overall overlay opacity (intensity times an edge fade) so the barrel-warped
// frame has no hard rectangular border.
const maskFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform vec2 resolution;
uniform float time;
uniform float intensity;
uniform int maskKind;        // 0 dot-grid, 1 subpixel-stripe, 2 interlaced-stripe
uniform float dotPitch;
uniform float dotScale;
uniform float dotFalloff;
uniform float brightness;
uniform vec2 convergenceRed;
uniform vec2 convergenceBlue;
uniform float convergenceStrength;
uniform float scanlineStrength;
uniform float animate;       // 1.0 when scanline drift is on
uniform float glitchAmount;

// Pseudo-random noise function
float rand(vec2 co) {
    return fract(sin(dot(co.xy, vec2(12.9898, 78.233))) * 43758.5453);
}

// Mask element value at a pixel coordinate, per pattern kind.
float maskValue(vec2 px) {
    float pitch = dotPitch * dotScale;

    if (maskKind == 0) {
        // Dot grid: distance to the nearest cell center, shaped by falloff.
        vec2 cell = fract(px / pitch) - 0.5;
        float d = length(cell) * 2.0;
        return pow(clamp(1.0 - d, 0.0, 1.0), dotFalloff);
    }

    if (maskKind == 1) {
        // Subpixel stripes: vertical bands, soft edged.
        float band = fract(px.x / pitch);
        float d = abs(band - 0.5) * 2.0;
        return pow(clamp(1.0 - d, 0.0, 1.0), dotFalloff);
    }

    // Interlaced stripes: as subpixel, but alternate rows shift half a cell.
    float row = floor(px.y / pitch);
    float shift = mod(row, 2.0) * 0.5;
    float band = fract(px.x / pitch + shift);
    float d = abs(band - 0.5) * 2.0;
    return pow(clamp(1.0 - d, 0.0, 1.0), dotFalloff);
}

void main() {
    vec2 px = TexCoord * resolution;

    // Per-channel convergence: each gun samples the mask from a slightly
    // different position, simulating beam misalignment.
    float r = maskValue(px + convergenceRed * convergenceStrength);
    float g = maskValue(px);
    float b = maskValue(px + convergenceBlue * convergenceStrength);
    vec3 color = vec3(r, g, b) * brightness;

    // Scanline modulation over vertical screen position, optionally drifting.
    float phase = px.y * 3.14159 / max(dotPitch, 1.0) + time * 2.0 * animate;
    float scan = 1.0 - scanlineStrength * 0.5 * (1.0 + sin(phase));
    color *= scan;

    // Glitch burst: horizontal tear lines with RGB fringing.
    if (glitchAmount > 0.0) {
        float lineNoise = floor(TexCoord.y * 24.0) / 24.0;
        if (rand(vec2(lineNoise, floor(time * 13.0))) < glitchAmount * 0.8) {
            float shift = (rand(vec2(lineNoise, time)) - 0.5) * glitchAmount;
            color.r *= 1.0 + shift;
            color.b *= 1.0 - shift;
        }
    }

    // Vignette darkens toward the corners.
    float distanceFromCenter = length(TexCoord - 0.5) * 2.0;
    color *= 1.0 - 0.35 * distanceFromCenter * distanceFromCenter;

    // Edge fade: alpha rolls off near the frame border so the distorted
    // frame edge never shows a hard rectangle.
    vec2 edge = min(TexCoord, 1.0 - TexCoord);
    float fade = smoothstep(0.0, 0.06, min(edge.x, edge.y));

    FragColor = vec4(color, intensity * fade);
}
`

// Bright pass: thresholds mask luminance into the bloom source buffer.
const brightFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform sampler2D maskTexture;
uniform float threshold;

void main() {
    vec4 c = texture(maskTexture, TexCoord);
    float lum = dot(c.rgb, vec3(0.2126, 0.7152, 0.0722));
    float keep = smoothstep(threshold, threshold + 0.1, lum);
    FragColor = vec4(c.rgb * keep, c.a);
}
`

// Separable Gaussian blur, fixed 9-tap kernel, run once horizontally and
// once vertically to produce the tight bloom.
const blurFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform sampler2D sourceTexture;
uniform vec2 direction;   // (1,0) or (0,1)
uniform vec2 resolution;
uniform float radius;

void main() {
    float weights[5] = float[](0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216);
    vec2 step = direction / resolution * radius;

    vec4 sum = texture(sourceTexture, TexCoord) * weights[0];
    for (int i = 1; i < 5; i++) {
        sum += texture(sourceTexture, TexCoord + step * float(i)) * weights[i];
        sum += texture(sourceTexture, TexCoord - step * float(i)) * weights[i];
    }
    FragColor = sum;
}
`

// Wide glow: exponential-decay blur with a larger reach than the Gaussian,
// simulating phosphor bleed distinct from the tight bloom.
const glowFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform sampler2D sourceTexture;
uniform vec2 direction;
uniform vec2 resolution;
uniform float radius;

void main() {
    vec2 step = direction / resolution;

    vec4 sum = vec4(0.0);
    float total = 0.0;
    for (int i = -12; i <= 12; i++) {
        float w = exp(-abs(float(i)) * 3.0 / max(radius, 1.0));
        sum += texture(sourceTexture, TexCoord + step * float(i) * radius * 0.25) * w;
        total += w;
    }
    FragColor = sum / total;
}
`

// Composite pass: barrel-distorts the sampling coordinates, combines mask,
// bloom and glow under the selected blend mode, shapes with gamma, and
// outputs straight color so the canvas blend scales it by alpha, matching
// the degraded mask-direct path.
const compositeFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform sampler2D maskTexture;
uniform sampler2D bloomTexture;
uniform sampler2D glowTexture;
uniform float bloomIntensity;   // 0 when the bloom pass was skipped
uniform float glowIntensity;    // 0 when the glow pass was skipped
uniform int blendMode;          // 0 additive, 1 screen, 2 soft-light, 3 lighten, 4 tone-mapped
uniform float gammaOut;
uniform float distortion;

vec3 blend(vec3 base, vec3 add) {
    if (blendMode == 0) {
        return base + add;
    }
    if (blendMode == 1) {
        return 1.0 - (1.0 - base) * (1.0 - add);
    }
    if (blendMode == 2) {
        return mix(base, (1.0 - (1.0 - base) * (1.0 - add)) * base + base * add, 0.5) + add * 0.5;
    }
    if (blendMode == 3) {
        return max(base, add);
    }
    // Tone-mapped: additive then squashed back into range.
    vec3 s = base + add;
    return s / (1.0 + s);
}

void main() {
    // Barrel distortion of the sampling coordinates.
    vec2 centered = TexCoord - 0.5;
    float r2 = dot(centered, centered);
    vec2 uv = 0.5 + centered * (1.0 + distortion * r2);

    // Outside the source frame: crop to transparent, never clamp-smear.
    if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
        FragColor = vec4(0.0);
        return;
    }

    vec4 mask = texture(maskTexture, uv);
    vec3 color = mask.rgb;

    if (bloomIntensity > 0.0) {
        color = blend(color, texture(bloomTexture, uv).rgb * bloomIntensity);
    }
    if (glowIntensity > 0.0) {
        color = blend(color, texture(glowTexture, uv).rgb * glowIntensity);
    }

    color = pow(max(color, vec3(0.0)), vec3(1.0 / gammaOut));

    // The mask pass writes straight color with blending disabled, so the
    // buffers are not premultiplied; the canvas blend scales by alpha.
    FragColor = vec4(color, mask.a);
}
`

// Glyph pass vertex shader: positioned quads in normalized device
// coordinates with atlas texture coordinates, used when rasterizing the
// terminal content into its offscreen buffer.
const glyphVertexShaderSource = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec2 aTexCoord;

out vec2 TexCoord;

void main() {
    gl_Position = vec4(aPos, 1.0);
    TexCoord = aTexCoord;
}
`

const glyphFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform sampler2D atlasTexture;
uniform vec3 textColor;

void main() {
    vec4 tex = texture(atlasTexture, TexCoord);
    FragColor = vec4(textColor * tex.r, tex.r);
}
`

// Content presenter: draws the scrolled content buffer to the canvas with
// the displacement warp applied in content space, so the warp stays fixed to
// the screen while the text moves under it. warpScale <= 0 bypasses the
// displacement entirely.
const contentFragmentShaderSource = `
#version 410 core
in vec2 TexCoord;
out vec4 FragColor;

uniform sampler2D contentTexture;
uniform sampler2D warpTexture;
uniform vec2 resolution;       // viewport pixels
uniform float contentHeight;   // full content pixels
uniform float scrollOffset;    // pixels from the top
uniform float warpScale;       // max displacement in pixels
uniform vec2 warpTile;         // pixel extent of one field tile
uniform float warpMargin;

uniform vec3 backgroundColor;

void main() {
    vec2 screenPx = vec2(TexCoord.x, 1.0 - TexCoord.y) * resolution;

    vec2 d = vec2(0.0);
    if (warpScale > 0.0) {
        // Field coverage spans the viewport plus the margin on every side;
        // sampling by screen position keeps the warp screen-fixed.
        vec2 fuv = (screenPx + vec2(warpMargin)) / warpTile;
        d = (texture(warpTexture, fuv).rg * 2.0 - 1.0) * warpScale;
    }

    vec2 contentPx = screenPx + d + vec2(0.0, scrollOffset);
    if (contentPx.y < 0.0 || contentPx.y >= contentHeight ||
        contentPx.x < 0.0 || contentPx.x >= resolution.x) {
        FragColor = vec4(backgroundColor, 1.0);
        return;
    }

    vec2 uv = vec2(contentPx.x / resolution.x, contentPx.y / contentHeight);
    vec4 c = texture(contentTexture, uv);
    FragColor = vec4(mix(backgroundColor, c.rgb, c.a), 1.0);
}
`

// Solid fill used for the emulated scrollbar track and thumb.
const solidFragmentShaderSource = `
#version 410 core
out vec4 FragColor;

uniform vec4 fillColor;

void main() {
    FragColor = fillColor;
}
`

const solidVertexShaderSource = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec2 aTexCoord;

void main() {
    gl_Position = vec4(aPos, 1.0);
}
`

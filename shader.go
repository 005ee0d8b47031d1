package main

// pos carries the chunk local corner in xyz and the packed light byte in w,
// sky light in the high nibble.
const lightFunc = `
float unpack_light(float packed) {
    float sky = floor(packed / 16.0);
    float block = packed - sky * 16.0;
    return max(sky, block) / 15.0;
}
`

var (
	blockVertexSource = `
#version 330 core

in vec4 pos;
in vec2 tex;

uniform mat4 matrix;
uniform mat4 model;
uniform vec3 camera;
uniform float fogdis;

out vec2 Tex;
out float light;
out float fog_factor;
` + lightFunc + `
void main() {
    vec4 world = model * vec4(pos.xyz, 1.0);
    gl_Position = matrix * world;

    float camera_distance = distance(world.xyz, camera);
    fog_factor = pow(clamp(camera_distance/fogdis, 0, 1), 4);
    Tex = tex;
    light = unpack_light(pos.w);
}
`

	blockFragmentSource = `
#version 330 core

in vec2 Tex;
in float light;
in float fog_factor;
uniform sampler2D tex;

out vec4 FragColor;

const vec3 sky_color = vec3(0.57, 0.71, 0.77);

void main() {
    vec3 color = vec3(texture(tex, vec2(Tex.x, 1-Tex.y)));
    if (color == vec3(1,0,1)) {
        discard;
    }
    color = mix(0.2, 1.0, light) * color;
    color = mix(color, sky_color, fog_factor);
    FragColor = vec4(color, 1);
}
`

	flatVertexSource = `
#version 330 core

in vec4 pos;
in vec4 color;

uniform mat4 matrix;
uniform mat4 model;
uniform vec3 camera;
uniform float fogdis;

out vec4 Color;
out float light;
out float fog_factor;
` + lightFunc + `
void main() {
    vec4 world = model * vec4(pos.xyz, 1.0);
    gl_Position = matrix * world;

    float camera_distance = distance(world.xyz, camera);
    fog_factor = pow(clamp(camera_distance/fogdis, 0, 1), 4);
    Color = color;
    light = unpack_light(pos.w);
}
`

	flatFragmentSource = `
#version 330 core

in vec4 Color;
in float light;
in float fog_factor;

out vec4 FragColor;

const vec3 sky_color = vec3(0.57, 0.71, 0.77);

void main() {
    vec3 color = mix(0.2, 1.0, light) * Color.rgb;
    color = mix(color, sky_color, fog_factor);
    FragColor = vec4(color, Color.a);
}
`

	lineVertexSource = `
#version 330 core

in vec3 pos;

uniform mat4 matrix;

void main() {
    gl_Position = matrix *  vec4(pos, 1.0);
}
`

	lineFragmentSource = `
#version 330 core

out vec4 color;

void main() {
    color = vec4(0,0,0,1);
}
`
)

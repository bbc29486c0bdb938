package nlm

import (
	"context"
	"fmt"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
)

// kernelSource is handed verbatim to the offload backend; compilation
// is the backend's concern and the build is cached per device.
const kernelSource = `
__kernel void nlm_denoise(__global const float *src, __global float *dst,
                          const int frames, const int height, const int width,
                          const int patch_size, const int patch_distance,
                          const float h2) {
    const int gid = get_global_id(0);
    const int t = gid / (height * width);
    const int y = (gid / width) % height;
    const int x = gid % width;
    if (t >= frames) return;

    const int pr = patch_size / 2;
    const float area = (float)(patch_size * patch_size);
    __global const float *frame = src + t * height * width;

    float sum_w = 0.0f;
    float sum_v = 0.0f;
    for (int dy = -patch_distance; dy <= patch_distance; dy++) {
        for (int dx = -patch_distance; dx <= patch_distance; dx++) {
            float d2 = 0.0f;
            for (int i = -pr; i <= pr; i++) {
                for (int j = -pr; j <= pr; j++) {
                    const float p = frame[clamp(y + i, 0, height - 1) * width + clamp(x + j, 0, width - 1)];
                    const float q = frame[clamp(y + dy + i, 0, height - 1) * width + clamp(x + dx + j, 0, width - 1)];
                    d2 += (p - q) * (p - q);
                }
            }
            const float wgt = exp(-d2 / area / h2);
            sum_w += wgt;
            sum_v += wgt * frame[clamp(y + dy, 0, height - 1) * width + clamp(x + dx, 0, width - 1)];
        }
    }
    dst[gid] = sum_v / sum_w;
}
`

func offloadedVariant(enum *discover.Enumerator) engine.Variant {
	return engine.Variant{
		Tag:        engine.Offloaded,
		Applicable: engine.OffloadRequirement,
		Run: func(ctx context.Context, eargs engine.Args) (*imgstack.Stack, error) {
			a, ok := eargs.(Args)
			if !ok {
				return nil, fmt.Errorf("%s: unexpected args type %T", Designation, eargs)
			}

			devices := enum.Devices(ctx)
			if len(devices) == 0 {
				return nil, engine.ErrDeviceUnavailable
			}
			dev := devices[0]

			prog, err := enum.Program(ctx, kernelSource, dev)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", engine.ErrDeviceUnavailable, err)
			}

			in := a.Input
			out := imgstack.New(in.Frames, in.Height, in.Width)
			err = prog.Run(ctx, []int{in.Frames * in.Height * in.Width},
				in.Data, out.Data,
				int32(in.Frames), int32(in.Height), int32(in.Width),
				int32(a.PatchSize), int32(a.PatchDistance),
				float32(a.H*a.H),
			)
			if err != nil {
				return nil, err
			}
			return out.Squeeze(), nil
		},
	}
}

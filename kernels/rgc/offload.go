package rgc

import (
	"context"
	"fmt"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
)

// kernelSource covers the convergence accumulation only. Gradient and
// intensity planes are interpolated on the host and shipped with the
// launch; the per-pixel loop dominates the runtime.
const kernelSource = `
__kernel void radial_gradient_convergence(__global const float *gx, __global const float *gy,
                                          __global const float *intensity, __global float *dst,
                                          const int height, const int width, const int magnification,
                                          const float tSS, const float tSO,
                                          const float sensitivity, const int do_weighting,
                                          const float radius) {
    const int gid = get_global_id(0);
    const int mH = height * magnification;
    const int mW = width * magnification;
    const int t = gid / (mH * mW);
    const int ym = (gid / mW) % mH;
    const int xm = gid % mW;

    const int gm = magnification * 2;
    const int gW = width * gm;
    const float yc = (ym + 0.5f) / magnification;
    const float xc = (xm + 0.5f) / magnification;
    const int bound = (int)(2.0f * radius) + 1;
    __global const float *fgx = gx + t * height * gm * gW;
    __global const float *fgy = gy + t * height * gm * gW;

    float rgc = 0.0f;
    float weight_sum = 0.0f;
    for (int j = -bound; j <= bound; j++) {
        const float vy = (trunc(2.0f * yc) + j) / 2.0f;
        if (vy <= 0.0f || vy > height - 1.0f) continue;
        for (int i = -bound; i <= bound; i++) {
            const float vx = (trunc(2.0f * xc) + i) / 2.0f;
            if (vx <= 0.0f || vx > width - 1.0f) continue;

            const float dy = vy - yc;
            const float dx = vx - xc;
            const float distance = hypot(dy, dx);
            if (distance == 0.0f || distance > tSO) continue;

            const int gi = (int)(vy * gm) * gW + (int)(vx * gm);
            const float sgx = fgx[gi];
            const float sgy = fgy[gi];

            float dw = distance * exp(-distance * distance / tSS);
            dw *= dw;
            dw *= dw;
            weight_sum += dw;

            if (sgx * dx + sgy * dy >= 0.0f) continue;
            const float g = hypot(sgx, sgy);
            if (g == 0.0f) continue;
            rgc += (1.0f - fabs(sgy * dx - sgx * dy) / (distance * g)) * dw;
        }
    }

    if (weight_sum > 0.0f) rgc /= weight_sum;
    if (rgc < 0.0f) rgc = 0.0f;
    else if (sensitivity > 1.0f) rgc = pow(rgc, sensitivity);
    if (do_weighting) rgc *= intensity[gid];
    dst[gid] = rgc;
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
			prog, err := enum.Program(ctx, kernelSource, devices[0])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", engine.ErrDeviceUnavailable, err)
			}

			in := a.Input
			mag := a.Magnification
			mH, mW := in.Height*mag, in.Width*mag
			out := imgstack.New(in.Frames, mH, mW)
			wt := makeWeights(a.Radius)

			gm := mag * gradMagnification
			gx := make([]float32, in.Frames*in.Height*gm*in.Width*gm)
			gy := make([]float32, len(gx))
			intensity := make([]float32, in.Frames*mH*mW)
			for t := 0; t < in.Frames; t++ {
				p := buildPlanes(in.Frame(t), in.Height, in.Width, mag, a.DoIntensityWeighting)
				copy(gx[t*len(p.gx):], p.gx)
				copy(gy[t*len(p.gy):], p.gy)
				if p.intensity != nil {
					copy(intensity[t*len(p.intensity):], p.intensity)
				}
			}

			weighting := int32(0)
			if a.DoIntensityWeighting {
				weighting = 1
			}
			err = prog.Run(ctx, []int{in.Frames * mH * mW},
				gx, gy, intensity, out.Data,
				int32(in.Height), int32(in.Width), int32(mag),
				float32(wt.tSS), float32(wt.tSO),
				float32(a.Sensitivity), weighting,
				float32(a.Radius),
			)
			if err != nil {
				return nil, err
			}
			return out.Squeeze(), nil
		},
	}
}

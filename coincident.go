package soilmap

import (
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/rotisserie/eris"
)

type voxel struct {
	sum float64
	num int
}

func minMaxVec3(ra []vec3d.T) (vec3d.T, vec3d.T, error) {
	if len(ra) == 0 {
		return vec3d.T{}, vec3d.T{}, eris.New("no point")
	}
	min, max := ra[0], ra[0]
	for i := 1; i < len(ra); i++ {
		v := ra[i]
		for i := range v {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return min, max, nil
}

// mergeCoincident collapses observations sharing an exact location into one
// whose value is their mean. Output order follows first occurrence.
func mergeCoincident(pc []vec3d.T) []vec3d.T {
	voxels := make(map[vec2d.T]*voxel, len(pc))
	order := make([]vec2d.T, 0, len(pc))
	for i := range pc {
		key := xy(pc[i])
		v, ok := voxels[key]
		if !ok {
			v = &voxel{}
			voxels[key] = v
			order = append(order, key)
		}
		v.num++
		v.sum += pc[i][2]
	}

	if len(order) == len(pc) {
		return pc
	}

	ret := make([]vec3d.T, 0, len(order))
	for _, key := range order {
		v := voxels[key]
		ret = append(ret, vec3d.T{key[0], key[1], v.sum / float64(v.num)})
	}
	return ret
}

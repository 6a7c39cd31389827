// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package gpuproc

import "github.com/gviegas/gpu/driver"

// runKernel binds views in descriptor order 0..len(views)-1, binds
// uniformBytes as the trailing constant descriptor, and dispatches enough
// 16x16 workgroups to cover width x height, blocking until done.
func runKernel(gpu driver.GPU, k kernel, views []driver.ImageView, uniformBytes []byte, width, height int) error {
	for i, v := range views {
		k.heap.SetImage(0, i, 0, []driver.ImageView{v})
	}
	ubuf, err := gpu.NewBuffer(int64(len(uniformBytes)), true, driver.UShaderConst)
	if err != nil {
		return err
	}
	defer ubuf.Destroy()
	copy(ubuf.Bytes(), uniformBytes)
	k.heap.SetBuffer(0, len(views), 0, []driver.Buffer{ubuf}, []int64{0}, []int64{int64(len(uniformBytes))})

	cb, err := gpu.NewCmdBuffer()
	if err != nil {
		return err
	}
	defer cb.Destroy()

	if err := cb.Begin(); err != nil {
		return err
	}
	cb.BeginWork(false)
	cb.SetPipeline(k.pipe)
	cb.SetDescTableComp(k.table, 0, []int{0})
	cb.Dispatch(workgroupCount(width), workgroupCount(height), 1)
	cb.EndWork()
	if err := cb.End(); err != nil {
		return err
	}
	return commitAndWait(gpu, cb)
}

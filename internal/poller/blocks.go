// internal/poller/blocks.go
package poller

import "github.com/tamzrod/parmair-bridge/internal/catalog"

// Modbus FC 3 carries at most 125 registers.
const maxQuantity = 125

// PlanBlocks groups definitions into read blocks. Registers are merged
// while the gap between them is at most maxGap and the block stays within
// maxBlock registers. defs must be sorted like catalog.ForFamily.
func PlanBlocks(defs []catalog.Definition, maxBlock, maxGap uint16) []ReadBlock {
	if maxBlock == 0 || maxBlock > maxQuantity {
		maxBlock = maxQuantity
	}

	var blocks []ReadBlock
	var cur *ReadBlock

	for _, d := range defs {
		coil := d.Kind == catalog.KindCoil
		end := uint32(d.Address) + uint32(d.Count()) // exclusive

		if cur != nil && cur.Coil == coil {
			curEnd := uint32(cur.Address) + uint32(cur.Quantity)
			if uint32(d.Address) <= curEnd+uint32(maxGap) && end-uint32(cur.Address) <= uint32(maxBlock) {
				if end > curEnd {
					cur.Quantity = uint16(end - uint32(cur.Address))
				}
				cur.Defs = append(cur.Defs, d)
				continue
			}
		}

		blocks = append(blocks, ReadBlock{
			Coil:     coil,
			Address:  d.Address,
			Quantity: d.Count(),
			Defs:     []catalog.Definition{d},
		})
		cur = &blocks[len(blocks)-1]
	}
	return blocks
}

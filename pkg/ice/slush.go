package ice

// UpdateSlushLevel turns snow into slush where the weight of the column pushes the water line
// above the top of the draft. The deepest snow layer of the top snow run converts first.
// Slush does not drain back into snow here.
func (c *Column) UpdateSlushLevel(k *Constants) {
	c.UpdateDraftThickness()
	c.UpdateWaterLine(k)

	excess := c.WaterLine - c.DraftThickness + k.CapillaryPull
	if excess <= k.MinSlushChange {
		return
	}

	deepestSnow := -1
	for i := range c.Layers {
		if !c.Layers[i].Type.IsSnow() {
			break
		}
		deepestSnow = i
	}

	for i := deepestSnow; i >= 0; i-- {
		snow := c.Layers[i]
		if excess > snow.Height*k.SnowToSlushRatio {
			slush := MustLayer(Slush, snow.Height*k.SnowToSlushRatio)
			slush.Metadata = snow.Clone().Metadata
			c.Layers[i] = slush
			excess -= slush.Height
			continue
		}

		splitHeight := excess / k.SnowToSlushRatio
		c.Layers[i].Height -= splitHeight
		c.InsertLayer(i+1, MustLayer(Slush, splitHeight))
		break
	}

	c.MergeAndRemoveExcessLayers()
	c.UpdateDraftThickness()
	c.UpdateWaterLine(k)
}
